package compute

import "fmt"

// BindingError reports a binding that is missing or smaller than the kernel reads.
type BindingError struct {
	Binding int
	Want    int
	Got     int
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding %d holds %d elements, kernel needs at least %d", e.Binding, e.Got, e.Want)
}
