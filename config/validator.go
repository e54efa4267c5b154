package config

// Validator is implemented by component config structs.
type Validator interface {
	Validate() error
}

// ValidateAll runs each validator and stops at the first failure.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
