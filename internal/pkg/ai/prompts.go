package ai

// SystemPrompt frames every upstream call. Kept short on purpose: the task
// prompts below carry the per-step instructions and the JSON contract.
const SystemPrompt = `You are a B2B lead qualification analyst. You evaluate LinkedIn
profiles against an Ideal Customer Profile (ICP) and produce structured,
actionable assessments. You respond with a single JSON object and nothing
else. Never invent facts that are not present in the input profile.`

// FitScorerPrompt asks for dimension-level fit scoring of a profile
// against an ICP configuration.
const FitScorerPrompt = `Score how well the profile in INPUT JSON fits the given ICP.
If "icp" is null, score against a generic senior B2B decision maker.

Respond with JSON of exactly this shape:
{
  "overall_score": <0-100>,
  "dimension_scores": {
    "seniority_match": <0-100>,
    "industry_match": <0-100>,
    "company_size_match": <0-100>,
    "skills_match": <0-100>,
    "experience_match": <0-100>,
    "engagement_level": <0-100>
  },
  "positive_signals": [<string>, ...],
  "negative_signals": [<string>, ...],
  "data_quality": <0-100>,
  "confidence": <0-100>
}`

// DecisionWriterPrompt turns a fit scoring result into an outreach decision.
const DecisionWriterPrompt = `Based on the qualification result and profile in INPUT JSON,
decide whether and how to contact this lead.

Respond with JSON of exactly this shape:
{
  "should_contact": <bool>,
  "priority": "high" | "medium" | "low",
  "score": <0-100>,
  "reasoning": <string>,
  "key_points": [<string>, <string>, <string>],
  "suggested_approach": <string>,
  "red_flags": [<string>, ...],
  "next_steps": <string>
}`
