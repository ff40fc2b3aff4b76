package helpers

// ConfigOption is one argument of a variadic options list. Packages declare their own named
// option type on top of it, such as report.MergerOption.
type ConfigOption[T any] interface {
	// Configure applies the option to target.
	Configure(target *T) error
}

// ApplyOptions applies options in order, stopping at the first error.
func ApplyOptions[T any, U ConfigOption[T]](target *T, options ...U) error {
	// U lets callers pass a slice of their own named option type.
	for _, o := range options {
		if err := o.Configure(target); err != nil {
			return err
		}
	}
	return nil
}
