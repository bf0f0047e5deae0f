package llm

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// systemPrompt instructs the model to emit the fixed line grammar and,
// when primed with context, to first repeat the context lines verbatim.
// The verbatim echo lands in the overlap region where the merge step
// keeps the later window's rendition, so it also gives the model a
// chance to supply lines the previous window missed.
const systemPrompt = `You are a professional transcriptionist. Your task is to transcribe audio content with high accuracy.

Instructions:
1. Listen to the audio carefully and transcribe all speech
2. Include timestamps for each speaker turn in the format [HH:MM:SS], relative to the start of this audio
3. Identify speakers by name when possible (e.g., "John", "Sarah")
4. If names are not clear, use roles when identifiable (e.g., "Manager", "Customer")
5. If neither names nor roles are clear, use "Speaker 1", "Speaker 2", etc., starting at 1
6. Maintain speaker consistency throughout the transcription
7. Format each line as: [timestamp] Speaker: text
8. Include all speech, even brief responses like "yes", "okay", etc.
9. Do not add commentary or explanations, only transcribe what is said

Expected output format examples:

With named speakers:
[00:01:23] John: Welcome everyone to today's meeting.
[00:01:27] Sarah: Thank you, John. I'm excited to be here.

With role-based speakers:
[00:02:15] Manager: How are we tracking against our goals?
[00:02:18] Analyst: We're about 15% ahead of schedule.

With numerical speakers:
[00:03:45] Speaker 1: Do we have the latest figures?
[00:03:47] Speaker 2: Yes, I can share those now.

When provided with context from a previous chunk:
First output the context lines EXACTLY as shown (verbatim), then continue transcribing the new audio. The context lines describe the beginning of this audio, so repeating the context lines exactly keeps timestamps and speaker labels aligned.

Example with context:
Context from previous chunk:
[00:00:30] Alice: We should finalize the plan.
[00:00:45] Bob: Agreed, let's do it.

Your output should be:
[00:00:30] Alice: We should finalize the plan.
[00:00:45] Bob: Agreed, let's do it.
[00:00:48] Alice: Great, moving on to the budget.`

// buildUserPrompt assembles the text part of the user message from the
// optional context preamble and the optional recording hint.
func buildUserPrompt(contextText, hint string) string {
	var b strings.Builder
	if hint != "" {
		fmt.Fprintf(&b, "Background about the recording: %s\n\n", hint)
	}
	if contextText != "" {
		b.WriteString("Context from previous chunk:\n")
		b.WriteString(contextText)
		b.WriteString("\n\nFirst repeat the context lines EXACTLY as shown (verbatim), then continue transcribing the rest of this audio chunk, maintaining speaker consistency.")
	} else {
		b.WriteString("Please transcribe this audio. Start timestamps from [00:00:00].")
	}
	return b.String()
}

func buildMessages(audioWAV []byte, contextText, hint string) []chatMessage {
	audioB64 := base64.StdEncoding.EncodeToString(audioWAV)
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: buildUserPrompt(contextText, hint)},
				{Type: "file", File: &filePart{FileData: "data:audio/wav;base64," + audioB64}},
			},
		},
	}
}
