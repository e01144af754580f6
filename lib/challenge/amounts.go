package challenge

// baseAmount is the week-1 deposit; each week saves weekNumber times this.
const baseAmount = 10_000

// Amount returns the deposit amount for the given challenge week, or false
// when the week is outside the challenge calendar.
func Amount(weekNumber int) (int, bool) {
	if weekNumber < 1 || weekNumber > Weeks {
		return 0, false
	}
	return weekNumber * baseAmount, true
}

// Total is the sum of all 52 weekly deposits.
func Total() int {
	total := 0
	for w := 1; w <= Weeks; w++ {
		amount, _ := Amount(w)
		total += amount
	}
	return total
}
