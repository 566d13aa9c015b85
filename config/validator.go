package config

// Validator is implemented by module configurations that can check
// themselves after loading.
type Validator interface {
	Validate() error
}

// ValidateAll runs Validate on each configuration and returns the first
// failure.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
