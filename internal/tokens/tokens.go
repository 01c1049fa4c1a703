// Package tokens provides the token-estimate heuristic shared by every
// component that sizes text against a budget (Store, Escalation,
// Explorer).
package tokens

// Estimate returns the token estimate for text: floor(len(text)/4), never
// less than 1 (an empty input also estimates as 1). This is the exact rule the Store
// applies to Message.token_estimate at insertion time, and every other
// component reuses it so a "token" means the same thing everywhere.
func Estimate(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
