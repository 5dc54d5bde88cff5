// Package cvfile resolves which physical CV file a pipeline run should read.
package cvfile

import "fmt"

// TailoredNotFoundError indicates a rerun was requested for a company that has
// no tailored CV on file. Reruns are defined as "test again with the improved
// CV", so falling back to the original would silently change their meaning.
type TailoredNotFoundError struct {
	Company string
}

func (e *TailoredNotFoundError) Error() string {
	return fmt.Sprintf("tailored CV not found for company %s", e.Company)
}
