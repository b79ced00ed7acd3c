package tracker

// Collection names under each user's namespace. The income singleton
// lives at settings/income; expenses and transactions are the two
// ledger collections. No other state is persisted.
const (
	CollExpenses     = "expenses"
	CollTransactions = "transactions"
)

func userColl(uid, name string) string {
	return "users/" + uid + "/" + name
}

func incomePath(uid string) string {
	return "users/" + uid + "/settings/income"
}
