// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import "fmt"

// SyntaxValidationFault reports that one generation attempt produced text
// that does not parse as a function body. The retry loop recovers from it;
// it only escapes the engine wrapped in a GenerationExhaustedFault.
type SyntaxValidationFault struct {
	Stub string
	Msg  string
}

func (f *SyntaxValidationFault) Error() string {
	return fmt.Sprintf("stub %s: generated code is not valid Go: %s", f.Stub, f.Msg)
}

// GenerationExhaustedFault reports that every generation attempt for a stub
// failed. It is fatal for the call and carries the last fault text.
type GenerationExhaustedFault struct {
	Stub      string
	Attempts  int
	LastFault string
}

func (f *GenerationExhaustedFault) Error() string {
	return fmt.Sprintf("stub %s: no valid implementation after %d attempts: %s",
		f.Stub, f.Attempts, f.LastFault)
}
