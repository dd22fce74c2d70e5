// Package validation turns malformed request input into VALIDATION_ERROR
// responses.
//
// Struct tags cover the static rules of the upload form:
//
//	type form struct {
//	    Threads int `form:"threads" validate:"omitempty,min=1,max=64"`
//	}
//	if err := validation.Validate(f); err != nil { ... }
//
// Validator collects the rules that span fields:
//
//	v := validation.New()
//	v.Range("max_speakers", f.MaxSpeakers, f.MinSpeakers, 20)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
