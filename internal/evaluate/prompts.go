// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "text/template"

const classificationScale = `1. Classify the claim:
   - "A" Supported: evidence agrees with the claim.
   - "B" Partially Supported: some evidence agrees; other evidence is neutral or contradictory.
   - "C" Inconclusive: evidence is neutral or conflicting.
   - "D" Refuted: evidence disagrees with the claim.`

const jsonRules = `Respond with a single JSON object and nothing else:
{"classification": "A | B | C | D", "motivation": "<explanation referring to sources by index>"}
Do not invent or cite sources that are not listed above. The JSON must be valid: no trailing commas, no text outside the object, characters escaped.`

var academicPrompt = template.Must(template.New("academic").Parse(`The user's hypothesis is:
"{{.Claim}}"

The user wants to know whether current research supports, refutes, or remains inconclusive about this hypothesis.

Below are the relevant papers:
{{range .Items}}
{{.Index}}. ID: {{.ID}}
   Citation: {{.Citation}}
   Title: {{.Title}}
   Summary:
   {{.Text}}
{{end}}
` + classificationScale + `

2. Motivation: explain the classification concisely:
   - A brief summary of the overall findings.
   - One list item per paper, starting with its citation, saying how it supports or refutes the hypothesis.

` + jsonRules + "\n"))

var articlePrompt = template.Must(template.New("articles").Parse(`The user's claim is:
"{{.Claim}}"

The user wants to know whether the {{.Kind}} below support, refute, or remain inconclusive about this claim.

Below are the relevant {{.Kind}}:
{{range .Items}}
{{.Index}}. Title: {{.Title}}
   URL: {{.URL}}
   {{.Text}}
{{end}}
` + classificationScale + `

2. Motivation: explain the classification concisely, summarize the overall findings, and name the most relevant {{.Kind}} by title.

` + jsonRules + "\n"))

const academicSystem = "You are a concise, factual assistant evaluating academic search results to support or refute a user's hypothesis."

const articleSystem = "You are a concise, factual assistant evaluating reference articles to support or refute a user's claim."

const abstractSystem = "You are a critical thinker trying to challenge the input hypotheses, based on facts for which you cite sources."
