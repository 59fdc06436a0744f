package models

// JobMatch is a single scored match from the job recommendation service.
// Order is whatever the service returned (descending score by contract);
// the client never re-sorts.
type JobMatch struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// TechStackRecommendation is the expected technology stack for one job
// title. Only the last-selected title's recommendation is retained.
type TechStackRecommendation struct {
	Title        string   `json:"title"`
	Technologies []string `json:"technologies"`
}

// StackDiff partitions a recommended stack against the user's recorded one.
// Both slices preserve the order of the recommended input, and every
// recommended entry lands in exactly one of them.
type StackDiff struct {
	AlreadyHave []string `json:"already_have"`
	ToLearn     []string `json:"to_learn"`
}

// StackInsight is the full response for a title selection: the raw
// recommendation, its reconciliation against the profile, and an optional
// advisor-generated learning plan.
type StackInsight struct {
	Title        string   `json:"title"`
	Technologies []string `json:"technologies"`
	AlreadyHave  []string `json:"already_have"`
	ToLearn      []string `json:"to_learn"`
	LearningPlan string   `json:"learning_plan,omitempty"`
}
