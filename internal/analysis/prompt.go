package analysis

// analyzeSystemPrompt carries the full scoring rubric. It is identical for
// every submission and sent as a cached system block.
const analyzeSystemPrompt = `You are a senior data consultant estimating incoming project briefs. Assess the brief and respond with a single valid JSON object, nothing else:

{
  "complexityScore": <integer 1-10>,
  "estimatedHours": <number>,
  "hourRange": {"min": <number>, "max": <number>},
  "recommendedRate": <number, USD per hour>,
  "recommendedEngagementModel": "<hourly | commission-hourly | equity-commission>",
  "totalEstimate": {"min": <number>, "max": <number>},
  "riskFactors": ["<string>", ...],
  "questions": ["<string>", ...],
  "suitability": "<excellent | good | fair | poor>",
  "autoApprove": <boolean>,
  "reasoning": "<short free text>"
}

Scoring rubric:
- complexityScore 1-3: well-scoped reporting or dashboard work on clean data.
- complexityScore 4-6: modeling or integration work with partial data availability.
- complexityScore 7-10: open-ended research, messy or absent data, novel methods.

Rate bands (USD/hour): 150 for scores 1-3, 200 for 4-6, 250 for 7-10.
Raise the band one step when the timeline is "asap" or data availability is "none".

Auto-approval rule: autoApprove is true only when complexityScore <= 5,
suitability is "excellent" or "good", and the stated budget covers the low end
of totalEstimate. Otherwise false.`

const analyzeUserPrompt = `Project brief:

Name: %s
Email: %s
Company: %s
Project description: %s
Timeline: %s
Stage: %s
Budget range: %s
Data availability: %s
Preferred engagement model: %s
Expected deliverables: %s`
