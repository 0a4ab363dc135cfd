package pipeline

// maxPromptChars caps how much unit text is injected into a prompt.
const maxPromptChars = 12000

const triageSystem = "You are an editorial analyst for a Spanish-language news pipeline. Return valid JSON only."

const triagePrompt = `Assess the following news content for relevance to ongoing news coverage.

Title: %s
Content:
%s

Return a valid JSON object:
{"relevant": <true|false>, "language": "<ISO 639-1 code>", "category": "<one of: politica, economia, sociedad, internacional, ciencia, cultura, deportes, otros>", "summary": "<one-sentence summary in the content's language>", "score": <0.0-1.0 relevance>}`

const extractSystem = "You are a news analyst extracting structured facts and named entities. Return valid JSON only. The content may be in Spanish; keep extracted text in its original language."

const extractPrompt = `Extract the factual assertions and named entities from this news content.

Title: %s
Content:
%s

Return a valid JSON object:
{"facts": [{"content": "<one factual assertion>", "confidence": <0.0-1.0>, "when": {"start": "<ISO date if known>", "end": "<ISO date for ranges>", "precision": "<day|month|year|period>", "is_future": <bool>}, "country": "<ISO country code if determinable>"}],
 "entities": [{"name": "<canonical name>", "type": "<person|organization|institution|place|event|other>", "aliases": ["<alternate mentions>"], "description": "<brief role description>", "confidence": <0.0-1.0>}]}`

const quotesSystem = "You are a news analyst extracting direct quotations and quantitative data. Return valid JSON only."

const quotesPrompt = `Extract direct quotations and quantitative data points from this news content. Reference the numbered facts and entities below when a quote or datum relates to one.

Facts:
%s
Entities:
%s

Content:
%s

Return a valid JSON object:
{"quotes": [{"text": "<verbatim quotation>", "speaker_entity_id": <entity number or 0>, "fact_id": <fact number or 0>, "date": "<ISO date if stated>", "context": "<brief context>", "confidence": <0.0-1.0>}],
 "data": [{"fact_id": <fact number or 0>, "indicator": "<what is measured>", "value": <number>, "unit": "<unit>", "period": "<period covered>", "trend": "<up|down|stable>", "confidence": <0.0-1.0>}]}`

const relationsSystem = "You are a news analyst identifying relationships between extracted facts and entities. Return valid JSON only."

const relationsPrompt = `Identify relationships among the numbered facts and entities below: fact-to-fact links, entity-to-entity links, and contradictions between facts.

Facts:
%s
Entities:
%s

Return a valid JSON object:
{"relations": [{"kind": "<fact_fact|entity_entity|contradiction>", "from_id": <number>, "to_id": <number>, "label": "<short description>", "confidence": <0.0-1.0>}]}`
