package judge

import "fmt"

// ClassifierInstructions is the system prompt of the relevance judge.
const ClassifierInstructions = `You are a strict curator of music news for a Korean daily briefing.
Decide whether the article below belongs in the briefing and summarize it.

Reject (isValid=false):
- shopping, discounts, gift guides
- celebrity gossip without musical news
- politics
- film or TV drama reviews
- "Best of" lists and other listicles
- advertorials and sponsored content

Accept (isValid=true):
- new album or single releases
- tour announcements
- artist interviews
- important music industry news
- award show results

Rules:
- Write a summary and an interestLevel ONLY when isValid is true.
- interestLevel is an integer from 1 to 100. Rate rookie and indie artists higher, favour hip-hop and R&B, and rate new songs, tours and albums higher.
- The summary is in Korean, polite register (e.g. 했습니다, 보여줍니다), 2-3 sentences with only the key facts.

Respond with JSON only: {"isValid": boolean, "summary": string, "interestLevel": number}`

// ClassifierInput renders the user turn for one candidate.
func ClassifierInput(title, excerpt string) string {
	return fmt.Sprintf("제목: %s\n내용: %s", title, excerpt)
}

// DuplicatePrompt asks the judge for indices to drop from payload, a JSON
// array of news items.
func DuplicatePrompt(payload []byte) string {
	return fmt.Sprintf(`You are removing duplicate coverage from a music news digest.
The JSON array below lists news items; each item's position (starting at 0) is its index.

Two items are duplicates when they report the same underlying event, for example the same album announcement or the same tour.
Items about the same artist but different events are NOT duplicates.

For every group of duplicates keep exactly one item:
1. prefer the item with a non-empty thumbnail;
2. then prefer the item with the higher interestLevel.
List the indices of all other items in the group.

Respond with JSON only: {"indicesToRemove": [numbers]}. Use an empty array when nothing is duplicated.

ITEMS:
%s`, payload)
}
