package assist

import (
	"fmt"
	"strings"

	"github.com/wingservice/privateschool/pkg/form"
)

// SupportPhone is the helpline read out or printed when the user asks for a
// human.
const SupportPhone = "+91 1800 572 4590"

// SupportSentinel is the marker the chat model emits when the user should be
// handed to support. The session strips it from the reply and appends the
// support line as its own turn.
const SupportSentinel = "[[CONTACT_SUPPORT]]"

// SupportLine is the canned support turn shown after the sentinel.
const SupportLine = "You can reach our support team at " + SupportPhone +
	" (Mon-Sat, 9am-6pm)."

func basePrompt(r form.Record) string {
	var b strings.Builder
	b.WriteString("You are a friendly assistant helping a school administrator ")
	b.WriteString("register their private school. Collect the registration ")
	b.WriteString("fields one at a time, in order, confirming each value back ")
	b.WriteString("to the user before moving on.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Whenever the user provides a field value, call " +
		ToolUpdateSchoolData + " with exactly the fields they gave.\n")
	b.WriteString("- Ask for the school level as one of \"" + form.LevelPrimary +
		"\" or \"" + form.LevelUpperPrimary + "\".\n")
	b.WriteString("- Attachments (photographs and certificates) are uploaded ")
	b.WriteString("through the form, not dictated. When an attachment is the ")
	b.WriteString("next missing item, ask the user to attach it in the form.\n")
	b.WriteString("- When every field and attachment is present, confirm with ")
	b.WriteString("the user and then call " + ToolSubmitReport + ".\n\n")

	next := form.NextMissingField(r)
	if next == form.Ready {
		b.WriteString("The form is complete. Offer to submit it.\n")
	} else {
		fmt.Fprintf(&b, "The next missing item is the %s. Ask for it.\n", next)
	}
	return b.String()
}

// LiveInstruction builds the system instruction for a voice session from the
// record as it stands when the session opens.
func LiveInstruction(r form.Record) string {
	return basePrompt(r) +
		"\nYou are speaking with the user over voice. Keep answers short and " +
		"conversational. If the user asks for a human, tell them to call " +
		SupportPhone + "."
}

// ChatInstruction builds the system instruction for a turn-based chat
// session from the current record.
func ChatInstruction(r form.Record) string {
	return basePrompt(r) +
		"\nYou are chatting with the user in text. If the user asks for a " +
		"human, include the exact marker " + SupportSentinel + " in your reply."
}
