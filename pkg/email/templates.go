package email

import (
	"fmt"
	"html"
)

// layout wraps a body in the shared header and footer. title and body must already be escaped.
func layout(title, body, appURL string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
    <table role="presentation" style="width: 100%%; border-collapse: collapse;">
        <tr>
            <td align="center" style="padding: 40px 0;">
                <table role="presentation" style="width: 600px; border-collapse: collapse; background-color: #ffffff; border-radius: 8px;">
                    <tr>
                        <td style="padding: 40px 30px; text-align: center; background-color: #0F766E; border-radius: 8px 8px 0 0;">
                            <h1 style="margin: 0; color: #ffffff; font-size: 26px;">%s</h1>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 40px 30px; font-size: 16px; line-height: 24px; color: #333333;">
                            %s
                            <p style="margin: 30px 0 0;">
                                <a href="%s" style="display: inline-block; padding: 12px 32px; background-color: #0F766E; color: #ffffff; text-decoration: none; border-radius: 6px; font-weight: bold;">Open Transac</a>
                            </p>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 24px; text-align: center; background-color: #f8f8f8; border-radius: 0 0 8px 8px; font-size: 12px; color: #999999;">
                            You are receiving this because you have a Transac account.
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`, title, title, body, html.EscapeString(appURL))
}

func WelcomeEmailTemplate(name, appURL string) string {
	body := fmt.Sprintf(`<p>Hi %s,</p>
                            <p>Your account is ready. Create an organization or ask to join one to start drafting contracts and verifying transactions.</p>`,
		html.EscapeString(name))
	return layout("Welcome to Transac", body, appURL)
}

func MembershipRequestedTemplate(orgName, applicantName, applicantEmail, appURL string) string {
	body := fmt.Sprintf(`<p><strong>%s</strong> (%s) asked to join <strong>%s</strong>.</p>
                            <p>As an administrator you can approve or reject the request from the organization page.</p>`,
		html.EscapeString(applicantName), html.EscapeString(applicantEmail), html.EscapeString(orgName))
	return layout("New membership request", body, appURL)
}

func MembershipResolvedTemplate(name, orgName string, approved bool, appURL string) string {
	outcome := "was declined by an administrator"
	if approved {
		outcome = "was approved. You now have access to the organization's workspace"
	}
	body := fmt.Sprintf(`<p>Hi %s,</p>
                            <p>Your request to join <strong>%s</strong> %s.</p>`,
		html.EscapeString(name), html.EscapeString(orgName), outcome)
	return layout("Membership update", body, appURL)
}
