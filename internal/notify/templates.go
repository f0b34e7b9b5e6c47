package notify

import (
	"bytes"
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intake/internal/model"
)

// Both bodies are rendered with html/template so every user-supplied string
// is escaped before it reaches the markup.

var operatorTmpl = template.Must(template.New("operator").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>New project brief</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .header { background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin-bottom: 20px; }
        .section { background-color: #e9ecef; padding: 15px; border-radius: 5px; margin: 15px 0; }
        table { border-collapse: collapse; }
        td { padding: 4px 12px 4px 0; vertical-align: top; }
        .approved { color: #28a745; font-weight: bold; }
        .pending { color: #fd7e14; font-weight: bold; }
    </style>
</head>
<body>
    <div class="header">
        <h2>New project brief{{if .AutoApprove}} <span class="approved">(auto-approved)</span>{{else}} <span class="pending">(pending review)</span>{{end}}</h2>
    </div>

    <div class="section">
        <h3>Contact</h3>
        <table>
            <tr><td><strong>Name</strong></td><td>{{.Input.Name}}</td></tr>
            <tr><td><strong>Email</strong></td><td>{{.Input.Email}}</td></tr>
            {{if .Input.Company}}<tr><td><strong>Company</strong></td><td>{{.Input.Company}}</td></tr>{{end}}
        </table>
    </div>

    <div class="section">
        <h3>Project</h3>
        <p>{{.Input.Description}}</p>
        <table>
            <tr><td><strong>Timeline</strong></td><td>{{.Input.Timeline}}</td></tr>
            <tr><td><strong>Stage</strong></td><td>{{.Input.Stage}}</td></tr>
            <tr><td><strong>Budget</strong></td><td>{{.Input.BudgetRange}}</td></tr>
            <tr><td><strong>Data availability</strong></td><td>{{.Input.DataAvailability}}</td></tr>
            <tr><td><strong>Deliverables</strong></td><td>{{.Input.Deliverables}}</td></tr>
        </table>
    </div>

    <div class="section">
        <h3>Analysis</h3>
        <table>
            <tr><td><strong>Complexity</strong></td><td>{{.Analysis.ComplexityScore}}/10</td></tr>
            <tr><td><strong>Estimated hours</strong></td><td>{{.Analysis.EstimatedHours}} ({{.Analysis.HourRange.Min}}&ndash;{{.Analysis.HourRange.Max}})</td></tr>
            <tr><td><strong>Rate</strong></td><td>${{.Analysis.RecommendedRate}}/hr</td></tr>
            <tr><td><strong>Total estimate</strong></td><td>${{.Analysis.TotalEstimate.Min}}&ndash;${{.Analysis.TotalEstimate.Max}}</td></tr>
            <tr><td><strong>Engagement model</strong></td><td>{{.Analysis.RecommendedEngagementModel}}</td></tr>
            <tr><td><strong>Suitability</strong></td><td>{{.Analysis.Suitability}}</td></tr>
        </table>
        {{if .Analysis.RiskFactors}}
        <h4>Risk factors</h4>
        <ul>{{range .Analysis.RiskFactors}}<li>{{.}}</li>{{end}}</ul>
        {{end}}
        {{if .Analysis.Questions}}
        <h4>Open questions</h4>
        <ul>{{range .Analysis.Questions}}<li>{{.}}</li>{{end}}</ul>
        {{end}}
        <p><em>{{.Analysis.Reasoning}}</em></p>
    </div>
</body>
</html>`))

var clientTmpl = template.Must(template.New("client").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>We received your project brief</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .header { background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin-bottom: 20px; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Thanks, {{.Name}} &mdash; we have your brief</h2>
    </div>
    <p>Your project brief is in our queue. We review every submission by hand
    and will come back to you with a detailed proposal within 48 hours.</p>
    <p>If anything changes in the meantime, just reply to this email.</p>
    <p>Best regards,<br>The Sells Advisors Team</p>
</body>
</html>`))

type operatorData struct {
	Input       model.BriefInput
	Analysis    model.Analysis
	AutoApprove bool
}

func renderOperatorHTML(input model.BriefInput, analysis model.Analysis) (string, error) {
	var buf bytes.Buffer
	err := operatorTmpl.Execute(&buf, operatorData{
		Input:       input,
		Analysis:    analysis,
		AutoApprove: analysis.AutoApprove,
	})
	if err != nil {
		return "", eris.Wrap(err, "notify: render operator template")
	}
	return buf.String(), nil
}

func renderClientHTML(input model.BriefInput) (string, error) {
	var buf bytes.Buffer
	if err := clientTmpl.Execute(&buf, struct{ Name string }{Name: input.Name}); err != nil {
		return "", eris.Wrap(err, "notify: render client template")
	}
	return buf.String(), nil
}

func operatorPlainText(input model.BriefInput, analysis model.Analysis) string {
	return "New project brief from " + input.Name + " <" + input.Email + ">.\n" +
		"Budget: " + input.BudgetRange + ". See the HTML version for the full analysis."
}

func clientPlainText(input model.BriefInput) string {
	return "Thanks, " + input.Name + " - we received your project brief.\n\n" +
		"We review every submission by hand and will come back to you with a " +
		"detailed proposal within 48 hours.\n\nBest regards,\nThe Sells Advisors Team"
}
