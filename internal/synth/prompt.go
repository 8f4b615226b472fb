// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/drizzle/pkg/types"
)

// systemPrompt is the fixed role text sent with every generation request.
// The engine asks for bare statements; anything else is stripped by Clean
// and rejected by validation.
const systemPrompt = `You are a Go function synthesizer. You receive a function signature and a
description of intended behavior. Your job is to write the BODY of that
function: the statements that would appear between its braces.

CRITICAL RULES:
1. Respond with ONLY Go statements. No signature, no surrounding braces, no
   markdown fences, no explanation.
2. The body must be valid Go inside the given signature. If the function
   declares a result, every path must end in a return of that type.
3. Use only the packages listed as available; they are already imported.
   Never write import declarations.
4. Do not declare other top-level functions or types.
5. Be deterministic: the same inputs must produce the same outputs.`

// stubPromptTmpl is the per-stub user prompt. On retry it carries the exact
// syntax fault from the previous attempt; feeding the fault back corrects
// far more responses than a blind retry.
var stubPromptTmpl = template.Must(template.New("stub").Parse(`Implement the body of this Go function.

Signature:

    func {{.Signature}}

{{if .Doc}}Description:

{{.Doc}}

{{end}}{{if .Packages}}Available packages (already imported): {{.Packages}}.

{{end}}{{if .PriorFault}}Your previous attempt was rejected by the Go parser:

    {{.PriorFault}}

Return a corrected body.

{{end}}Respond with only the function body statements.`))

// renderPrompt builds the user prompt for one generation attempt.
// priorFault is empty on the first attempt.
func renderPrompt(d types.StubDescriptor, packages []string, priorFault string) (string, error) {
	data := struct {
		Signature  string
		Doc        string
		Packages   string
		PriorFault string
	}{
		Signature:  d.Signature(),
		Doc:        d.Doc,
		Packages:   strings.Join(packages, ", "),
		PriorFault: priorFault,
	}

	var buf bytes.Buffer
	if err := stubPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
