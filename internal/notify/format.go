package notify

import (
	"fmt"
	"strings"

	"partsync/internal/model"
)

// maxListedErrors is how many category errors a summary spells out.
const maxListedErrors = 3

// Summary renders a notification as plain text: the message, then at most three
// errors and a count of the rest.
func Summary(n model.Notification) string {
	var b strings.Builder
	b.WriteString(n.Message)
	if !n.HasErrors || len(n.Errors) == 0 {
		return b.String()
	}

	b.WriteString("\nErrors:")
	for i, e := range n.Errors {
		if i == maxListedErrors {
			fmt.Fprintf(&b, "\n... and %d more errors", len(n.Errors)-maxListedErrors)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(e)
	}
	return b.String()
}
