package agent

const queryWriterSystemPrompt = `You are a research assistant that writes web search queries.
Generate diverse, specific search queries that together cover the research question.
Prefer recent information where the question is time-sensitive.
Never repeat a query listed under "Already researched".`

const queryWriterSchema = `Return the JSON object directly without any formatting or additional text. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "queries": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "query": {"type": "string", "description": "The search query text"},
          "rationale": {"type": "string", "description": "Why this query helps answer the question"}
        },
        "required": ["query", "rationale"]
      }
    }
  },
  "required": ["queries"]
}`

const summarizerSystemPrompt = `You are a research assistant.
Summarize the search results below into a dense, factual digest relevant to the query.
Keep concrete facts, numbers, names, and dates. Do not invent information not present in the results.`

const reflectionSystemPrompt = `You are a research manager reviewing gathered findings.
Decide whether the findings are sufficient to answer the research question comprehensively.
If they are not, name the knowledge gaps and write follow-up search queries that would close them.
A verdict of insufficient must come with at least one follow-up direction.`

const reflectionSchema = `Return the JSON object directly without any formatting or additional text. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "is_sufficient": {"type": "boolean"},
    "knowledge_gap": {"type": "string", "description": "What information is still missing"},
    "follow_up_queries": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Search queries that would close the gap"
    }
  },
  "required": ["is_sufficient", "knowledge_gap", "follow_up_queries"]
}`

const answerSystemPrompt = `You are a research assistant writing the final answer.
Answer the research question using only the findings provided.
Cite sources inline with their bracketed ids, e.g. [3f1a]. Do not cite anything not listed under Sources.
If the findings are empty or insufficient, say so plainly and answer as far as the question itself allows.`

// degradedAnswerText is returned when the synthesis model call fails; the
// run still delivers the gathered sources.
const degradedAnswerText = "The research completed, but the final answer could not be generated. " +
	"The sources gathered during research are listed below."
