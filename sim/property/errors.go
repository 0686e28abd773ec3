package property

import "fmt"

// A ConfigurationError reports an elaboration-time property value that cannot
// be used. It aborts elaboration.
type ConfigurationError struct {
	Name  string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error in %s: %v", e.Name, e.Err)
	}

	return fmt.Sprintf("configuration error in %s=%q: %v",
		e.Name, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
