package email

import (
	"bytes"
	"html/template"
	"time"

	"github.com/example/cartelera/internal/display"
)

// OrderItem represents a ticket line for email purposes
type OrderItem struct {
	EventID  string
	Title    string
	When     time.Time
	Venue    string
	Quantity int
	Price    float64
}

// Confirmation is everything the order confirmation shows.
type Confirmation struct {
	OrderID  string
	Name     string
	Currency string
	Total    float64
	PlacedAt time.Time
	Items    []OrderItem
}

type itemRow struct {
	Title    string
	Details  string
	Quantity int
	Price    string
	Subtotal string
}

type confirmationData struct {
	OrderID  string
	Name     string
	PlacedAt string
	Items    []itemRow
	Total    string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">¡Gracias por tu compra{{if .Name}}, {{.Name}}{{end}}!</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Tus entradas están confirmadas. Presenta este correo en la puerta.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Número de orden</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">{{.OrderID}}</p>
			<p style="margin: 5px 0 0 0; font-size: 12px; color: #666;">{{.PlacedAt}}</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Detalle</h2>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Evento</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Cant.</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Precio</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
			{{range .Items}}<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Title}}{{if .Details}}<br><small style="color: #666;">{{.Details}}</small>{{end}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{.Price}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{.Subtotal}}</td>
			</tr>
			{{end}}</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">{{.Total}}</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			Este correo se envió automáticamente. Si tienes dudas, responde a este mensaje.
		</p>
	</div>
</body>
</html>`))

// BuildOrderConfirmationBody renders the HTML body. Titles fall back to the
// event id; amounts are formatted for the Peruvian locale.
func BuildOrderConfirmationBody(c Confirmation) (string, error) {
	data := confirmationData{
		OrderID:  c.OrderID,
		Name:     c.Name,
		PlacedAt: display.DateTime(c.PlacedAt),
		Total:    display.Price(c.Total, c.Currency),
		Items:    make([]itemRow, 0, len(c.Items)),
	}
	for _, item := range c.Items {
		title := item.Title
		if title == "" {
			title = item.EventID
		}
		details := item.Venue
		if !item.When.IsZero() {
			if details != "" {
				details += " · "
			}
			details += display.DateTime(item.When)
		}
		data.Items = append(data.Items, itemRow{
			Title:    title,
			Details:  details,
			Quantity: item.Quantity,
			Price:    display.Price(item.Price, c.Currency),
			Subtotal: display.Price(item.Price*float64(item.Quantity), c.Currency),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
