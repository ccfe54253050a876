package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry runs action until it succeeds or one of the strategies declines
// another attempt, returning the number of attempts made and the last error.
//
// Strategies are consulted in order after each failure, so strategies that
// sleep should come last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for attempt := uint(1); ; attempt++ {
		err := action()
		if err == nil {
			return attempt, nil
		}

		for _, s := range strategies {
			if !s(attempt, err) {
				return attempt, err
			}
		}
	}
}
