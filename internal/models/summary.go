package models

// Summary is the per-file result of the remote summarization step.
type Summary struct {
	FileName string `json:"filename"`
	Summary  string `json:"summary"`
}

// Result is everything one upload_and_classify call returns.
type Result struct {
	Summaries        []Summary          `json:"summaries"`
	OrganizationSpec ClassificationSpec `json:"organization_spec"`
	MarkdownSummary  string             `json:"markdown_summary"`
}
