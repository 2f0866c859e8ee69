package payment

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/format"
)

// Receipt holds the fields printed on a payment receipt.
type Receipt struct {
	ID              string
	TenantName      string
	PropertyTitle   string
	PropertyAddress string
	Amount          float64
	PaidAt          time.Time
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"naira": format.Naira,
	"date":  format.Date,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; margin: 40px; }
.header { text-align: center; margin-bottom: 30px; }
.details { margin: 20px 0; }
.footer { margin-top: 30px; text-align: center; color: #666; }
</style>
</head>
<body>
<div class="header">
<h1>SmartRent Payment Receipt</h1>
<p>Receipt #{{.ID}}</p>
</div>
<div class="details">
<p><strong>Tenant:</strong> {{.TenantName}}</p>
<p><strong>Property:</strong> {{.PropertyTitle}}</p>
<p><strong>Address:</strong> {{.PropertyAddress}}</p>
<p><strong>Amount:</strong> {{naira .Amount}}</p>
<p><strong>Date:</strong> {{date .PaidAt}}</p>
</div>
<div class="footer">
<p>Thank you for using SmartRent!</p>
</div>
</body>
</html>
`))

// HTML renders the receipt page.
func (r Receipt) HTML() (string, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DataURL wraps html as a percent-encoded data: URL.
func DataURL(html string) string {
	return "data:text/html," + strings.ReplaceAll(url.QueryEscape(html), "+", "%20")
}
