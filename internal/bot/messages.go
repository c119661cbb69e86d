package bot

import (
	"fmt"
	"html"
	"strings"

	"billsplit/internal/caption"
)

const (
	processingText     = "Processing receipt and calculating split..."
	noParticipantsText = "Please provide participant information in the caption!"
	genericErrorText   = "Sorry, an error occurred processing the receipt. Please check the image and caption format."
	unreadableText     = "Sorry, I couldn't read any items from that receipt. Please send a clearer photo."
	timeoutText        = "Sorry, reading the receipt took too long. Please try again in a moment."
	tooLargeText       = "Sorry, that photo is too large for me to download. Please send a smaller one."
	nothingMatchedText = "None of the caption items matched a line on the receipt. Please check the item names."
)

func startText(username string) string {
	return fmt.Sprintf(
		"Hi! Add me to a group, then tag me (@%s) in a message with a receipt photo to split the bill.",
		html.EscapeString(username),
	)
}

func helpText(username string) string {
	u := "@" + html.EscapeString(username)
	return "How to use:\n" +
		"1. Add me to your group.\n" +
		"2. Take a clear photo of your receipt.\n" +
		"3. Send the photo to the group with caption in this format:\n\n" +
		u + "\n" +
		"Person1: item1, item2\n" +
		"Person2: item1, item2\n\n" +
		"Example:\n" +
		u + "\n" +
		"Alice: burger, coke\n" +
		"Bob: pasta, 2x beer\n\n" +
		"Commands:\n" +
		"/start - Welcome message\n" +
		"/help - This message"
}

// captionProblems renders a caption ParseError as an HTML reply
func captionProblems(perr *caption.ParseError) string {
	var b strings.Builder
	b.WriteString("I couldn't read the caption. Each line should look like <code>Name: item1, item2</code>.\n")
	for _, l := range perr.Lines {
		fmt.Fprintf(&b, "\nLine %d (<code>%s</code>): %s",
			l.Line, html.EscapeString(l.Text), html.EscapeString(l.Reason))
	}
	return b.String()
}
