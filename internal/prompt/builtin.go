package prompt

// builtinTemplates maps template filename to content, one per agent. Every
// template ends with the same JSON-only contract because the executor
// decodes the response directly into the step's typed payload.
var builtinTemplates = map[string]string{
	"function-planner.md":    functionPlannerTemplate,
	"state-designer.md":      stateDesignerTemplate,
	"layout-designer.md":     layoutDesignerTemplate,
	"style-designer.md":      styleDesignerTemplate,
	"component-assembler.md": componentAssemblerTemplate,
	"code-validator.md":      codeValidatorTemplate,
	"tool-finalizer.md":      toolFinalizerTemplate,
}

const jsonContract = `Respond with a single JSON object matching your output schema and nothing
else: no markdown fences, no commentary.`

const editBlock = `{{#if existing_json}}
## Existing Output
You previously produced this output:
{{existing_json}}

## Edit Instructions
Regenerate the output, applying these changes and keeping everything else:
{{edit_instructions}}
{{/if}}`

const toolBrief = `## Tool Brief
{{description}}
{{#if tool_type}}Tool type: {{tool_type}}
{{/if}}{{#if audience}}Target audience: {{audience}}
{{/if}}{{#if tags}}Tags: {{tags}}
{{/if}}`

const functionPlannerTemplate = `# Plan Functions

You are the function-planner agent in a UI component generation pipeline.
Decide what the tool computes: the function signatures the component will
implement, with parameter and return descriptions.

` + toolBrief + `
{{#if brainstorm_json}}
## Brainstorm Context
{{brainstorm_json}}
{{/if}}
` + editBlock + `
` + jsonContract + `
`

const stateDesignerTemplate = `# Design State Logic

You are the state-designer agent in a UI component generation pipeline.
Design the React state: variables, their types and initial values, and the
handler functions that update them. Stay consistent with the planned
function signatures.

` + toolBrief + `
## Upstream Outputs
{{inputs_json}}
` + editBlock + `
` + jsonContract + `
`

const layoutDesignerTemplate = `# Design Layout

You are the layout-designer agent in a UI component generation pipeline.
Design the JSX structure: inputs, controls, result areas. Unstyled; a later
step applies styling. Stay consistent with the planned function signatures.

` + toolBrief + `
## Upstream Outputs
{{inputs_json}}
` + editBlock + `
` + jsonContract + `
`

const styleDesignerTemplate = `# Apply Styling

You are the style-designer agent in a UI component generation pipeline.
Apply Tailwind utility classes to the layout and pick a coherent color
scheme. Return the styled JSX and the palette.

` + toolBrief + `
## Upstream Outputs
{{inputs_json}}
` + editBlock + `
` + jsonContract + `
`

const componentAssemblerTemplate = `# Assemble Component

You are the component-assembler agent in a UI component generation pipeline.
Combine the state logic and the styled layout into one complete working
React function component in plain JavaScript. No import or export
statements; the component must be self-contained.

` + toolBrief + `
## Upstream Outputs
{{inputs_json}}
` + editBlock + `
` + jsonContract + `
`

const codeValidatorTemplate = `# Validate Code

You are the code-validator agent in a UI component generation pipeline.
Review the assembled component for syntax errors, undefined references,
hook misuse, and unreachable UI states. Report each finding with a severity
of "error" or "warning". Set valid to false only for errors.

` + toolBrief + `
## Upstream Outputs
{{inputs_json}}
` + editBlock + `
` + jsonContract + `
`

const toolFinalizerTemplate = `# Finalize Tool

You are the tool-finalizer agent in a UI component generation pipeline.
Produce the final deliverable: the polished component code and a PascalCase
component name derived from the tool brief. Apply fixes for any validation
findings.

` + toolBrief + `
## Upstream Outputs
{{inputs_json}}
` + editBlock + `
` + jsonContract + `
`
