package mailer

import (
	"fmt"
	"html"
)

// Each template defines its own positional argument order. Missing
// arguments render as empty strings rather than failing the send.
//
//	claimNotification: itemTitle, claimerName, claimDescription
//	matchSuggestion:   lostTitle, foundTitle, foundDescription, foundLocation, foundDate, foundItemID
//	claimApproved:     itemTitle
var templates = map[string]func(m *Mailer, args []string) (subject, body string){
	"claimNotification": func(m *Mailer, args []string) (string, string) {
		title := html.EscapeString(arg(args, 0))
		claimer := html.EscapeString(arg(args, 1))
		description := html.EscapeString(arg(args, 2))
		return fmt.Sprintf("New Claim on Your %s", arg(args, 0)),
			fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Campus Lost &amp; Found</h2>
  <h3>New Claim on Your Item</h3>
  <p>Someone has claimed your item: <strong>%s</strong></p>
  <div style="background-color: #f3f4f6; padding: 15px; border-radius: 5px; margin: 15px 0;">
    <p><strong>Claimer:</strong> %s</p>
    <p><strong>Description:</strong> %s</p>
  </div>
  <p>Please log in to your account to review this claim.</p>
  <a href="%s/dashboard">View Dashboard</a>
</div>`, title, claimer, description, m.ClientURL)
	},

	"matchSuggestion": func(m *Mailer, args []string) (string, string) {
		lostTitle := html.EscapeString(arg(args, 0))
		foundTitle := html.EscapeString(arg(args, 1))
		foundDescription := html.EscapeString(arg(args, 2))
		foundLocation := html.EscapeString(arg(args, 3))
		foundDate := html.EscapeString(arg(args, 4))
		foundID := arg(args, 5)
		return "Potential Match Found for Your Lost Item",
			fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Campus Lost &amp; Found</h2>
  <h3>Potential Match Found!</h3>
  <p>We found a potential match for your lost item: <strong>%s</strong></p>
  <div style="background-color: #f0f9ff; padding: 15px; border-radius: 5px; margin: 15px 0;">
    <h4>Found Item Details:</h4>
    <p><strong>Title:</strong> %s</p>
    <p><strong>Description:</strong> %s</p>
    <p><strong>Location Found:</strong> %s</p>
    <p><strong>Date Found:</strong> %s</p>
  </div>
  <p>If this looks like your item, you can claim it through the system.</p>
  <a href="%s/items/%s">View Item Details</a>
</div>`, lostTitle, foundTitle, foundDescription, foundLocation, foundDate, m.ClientURL, foundID)
	},

	"claimApproved": func(m *Mailer, args []string) (string, string) {
		title := html.EscapeString(arg(args, 0))
		return "Your Claim Has Been Approved",
			fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Campus Lost &amp; Found</h2>
  <h3>Claim Approved!</h3>
  <p>Your claim for <strong>%s</strong> has been approved by the owner.</p>
  <div style="background-color: #f0f9ff; padding: 15px; border-radius: 5px; margin: 15px 0;">
    <p><strong>Next Steps:</strong></p>
    <ol>
      <li>Contact the item owner to arrange pickup</li>
      <li>Bring your campus ID for verification</li>
      <li>Confirm unique identifying marks of the item</li>
    </ol>
  </div>
  <a href="%s/dashboard">View Dashboard</a>
</div>`, title, m.ClientURL)
	},
}

// arg returns args[i], or "" when the caller supplied fewer arguments
// than the template expects.
func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
