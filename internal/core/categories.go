package core

// OtherCategory is the fallback category of imported rows.
const OtherCategory = "Other"

// DefaultCategories lists the categories seeded for a new owner, by kind.
var DefaultCategories = map[CategoryKind][]string{
	CategoryKind(Expense): {
		"Food & Dining",
		"Transportation",
		"Shopping",
		"Entertainment",
		"Utilities",
		"Healthcare",
		"Education",
		"Travel",
		"Personal Care",
		OtherCategory,
	},
	CategoryKind(Income): {
		"Salary",
		"Freelance",
		"Bonus",
		"Investment",
		"Gift",
		OtherCategory,
	},
	CategoryKind(Subscription): {
		"Streaming",
		"Cloud Storage",
		"Productivity",
		"Entertainment",
		"Health & Fitness",
		"Shopping",
		OtherCategory,
	},
}

// CategoryKinds is the seeding order of DefaultCategories.
var CategoryKinds = []CategoryKind{
	CategoryKind(Expense),
	CategoryKind(Income),
	CategoryKind(Subscription),
}
