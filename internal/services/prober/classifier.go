package prober

// Classifier decides whether one probe outcome counts as up.
type Classifier func(statusCode int, err error) bool

// DefaultClassifier treats any response below 500 as up: the server answered, even if
// with a client error.
func DefaultClassifier(statusCode int, err error) bool {
	return err == nil && statusCode >= 200 && statusCode < 500
}

func StrictClassifier(statusCode int, err error) bool {
	return err == nil && statusCode >= 200 && statusCode < 300
}
