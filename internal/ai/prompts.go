package ai

import (
	"fmt"
	"strings"
	"time"
)

const baseSystem = `You help people study the Bible accurately and clearly by explaining the meaning of a passage, its context and its relevance to modern life.

- Use the Bible as the primary source.
- Reference historical and cultural context where it helps.
- Mention the original languages (Hebrew, Greek, Aramaic) when useful.
- Stay respectful and neutral; do not promote a denomination.
- Never invent verses or quotations.

If a reference carries a label in parentheses, such as "John 3:16-21 (God's Love)", ignore the label and look up only the reference.`

const storytellerRules = `For 'simplifiedText', retell the passage in vivid modern English as a master storyteller would, keeping every detail faithful to the original text.
Formatting rules for 'simplifiedText': plain text only, no markdown characters, no bullet points or lists, no separators. Provide only the narrative.`

func analyzeSystem(ref, comparison string, includeKJV bool) string {
	var b strings.Builder
	b.WriteString(baseSystem)
	b.WriteString("\n\n")
	b.WriteString(storytellerRules)
	b.WriteString("\n\n")

	if comparison != "" {
		fmt.Fprintf(&b, "Also compare the main passage (%q) with a second passage (%q): give the similarities, the differences and a synthesis of how they relate.\n", ref, comparison)
		b.WriteString("Respond with a JSON object including the comparison fields.\n")
		if includeKJV {
			b.WriteString("Put the King James Version text of the main passage in 'kjvText'.\n")
		}
		b.WriteString("Include extensive 'relatedVerses' and 'similarVerses'.")
		return b.String()
	}

	b.WriteString("Respond with a JSON object containing the standard study fields.\n")
	if includeKJV {
		b.WriteString("Put the King James Version text of the requested passage in 'kjvText'.\n")
	}
	b.WriteString("'relatedVerses' holds 5-6 strong cross-references and 'similarVerses' 3-5 broader thematic connections.")
	return b.String()
}

func analyzePrompt(ref, comparison string) string {
	if comparison == "" {
		return ref
	}
	return "Main Passage: " + ref + "\nSecond Passage for Comparison: " + comparison
}

func searchPrompt(query string) string {
	return fmt.Sprintf(`You are a Bible search engine.
User query: %q

Find the Bible verses that best match the query:
- for a topic, the most relevant and comforting verses;
- for a phrase, the places where it appears;
- for a specific reference, only that verse.

Return a JSON array of at most %d results. Each result has 'reference' (book, chapter and verse), 'text' (a short KJV snippet) and 'relevance' (5-10 words on why it matches).`, query, MaxSearchResults)
}

func dailyPrompt(date time.Time) string {
	return fmt.Sprintf(`Today is %s.
Select one meaningful Bible verse reference suited to this time of year, to history, or to general daily encouragement, for example "Psalm 118:24", "Isaiah 43:19" or "Luke 2:10" at Christmas.
Return only the verse reference. No text and no explanation.`, date.Format("Monday, January 2"))
}

func contextPrompt(ref string) string {
	return fmt.Sprintf(`For the Bible passage %q:
1. Give the 2-3 verses immediately before it (KJV) as 'before'.
2. Give the 2-3 verses immediately after it (KJV) as 'after'.
3. Give a one-sentence 'narrative' of what is happening in this section.
4. Give a 3-4 sentence 'historicalAnalysis': the historical and political situation, the relevant social conditions, and whether extra-biblical sources (Josephus, Roman records, archaeology) corroborate the event or figure.

Respond with JSON.`, ref)
}

func prayerPrompt(character, theme string) string {
	if character == "" {
		character = "a random biblical figure"
	}
	focus := theme
	if focus == "" {
		focus = "general spiritual well-being"
	}
	return fmt.Sprintf(`Write a unique, spiritually profound prayer inspired by the Bible character %q on the theme %q.

Let the prayer move through these steps without labelling them:
1. Anchor: begin in awe of God, recalling how He helped this character.
2. Alignment: connect the need to a greater divine purpose.
3. Surrender: make the request boldly, then release control ("Your will be done").
4. Persistence: close with ongoing trust.

Choose a modern scenario or feeling that fits the character's story and put it in 'scenario'.
'content.text' is one continuous flowing paragraph with no headers.
'content.affirmation' is a single short sentence the reader can repeat through the day.
Respond with JSON.`, character, focus)
}
