package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// PaymentConfirmationData feeds the payment confirmation e-mail.
type PaymentConfirmationData struct {
	CustomerName    string
	PlanName        string
	OrderID         string
	AmountCents     int64
	PaidAt          time.Time
	SubscriptionEnd time.Time
}

var paymentConfirmationTemplate = template.Must(template.New("payment_confirmation").Funcs(template.FuncMap{
	"brl":  FormatBRL,
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Pagamento confirmado</h2>
  <p>Olá {{.CustomerName}},</p>
  <p>Recebemos o pagamento de <strong>{{brl .AmountCents}}</strong> referente ao <strong>{{.PlanName}}</strong>.</p>
  <p>Sua assinatura está ativa até <strong>{{date .SubscriptionEnd}}</strong>.</p>
  <p style="color: #6b7280; font-size: 12px;">Pedido {{.OrderID}} · pago em {{date .PaidAt}}</p>
</body>
</html>`))

// RenderPaymentConfirmation returns the subject and HTML body.
func RenderPaymentConfirmation(data PaymentConfirmationData) (string, string, error) {
	var buf bytes.Buffer
	if err := paymentConfirmationTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return "Pagamento confirmado - " + data.PlanName, buf.String(), nil
}

// FormatBRL formats centavos as "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := cents / 100
	digits := fmt.Sprintf("%d", units)
	var grouped []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, d)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped, cents%100)
}
