package checkout

import (
	"context"
	"fmt"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

const midtransCurrency = "IDR"

type snapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// MidtransGateway opens Midtrans Snap transactions.
type MidtransGateway struct {
	client snapClient
}

// NewMidtransGateway configures a Snap client against the sandbox or production environment.
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	var client snap.Client
	if production {
		client.New(serverKey, midtrans.Production)
	} else {
		client.New(serverKey, midtrans.Sandbox)
	}
	return &MidtransGateway{client: &client}
}

func newMidtransGatewayWithClient(client snapClient) *MidtransGateway {
	return &MidtransGateway{client: client}
}

// CreateSession creates a Snap transaction. Snap only knows a finish callback, so the cancel URL
// is not forwarded; the checkout page links back to it from the frontend.
func (g *MidtransGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(req.Currency, midtransCurrency) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, req.Currency)
	}
	gross := req.Amount.Round(0).IntPart()
	if gross <= 0 {
		return nil, fmt.Errorf("invalid checkout amount %s", req.Amount.String())
	}
	if req.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       truncate(req.OrderID, 50),
				Price:    gross,
				Qty:      1,
				Name:     truncate(defaultString(req.Description, "Lesson booking"), 50),
				Category: "LESSON",
			},
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FullName,
			Email: req.Customer.Email,
		},
		Callbacks: &snap.Callbacks{Finish: req.SuccessURL},
	}
	snapReq.CustomField1 = truncate(req.Metadata["lessonType"], 255)
	snapReq.CustomField2 = truncate(req.Metadata["teacherId"], 255)
	snapReq.CustomField3 = truncate(req.Metadata["studentId"], 255)

	resp, mErr := g.client.CreateTransaction(snapReq)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans create transaction: %s", mErr.GetMessage())
	}
	if resp == nil || resp.RedirectURL == "" {
		return nil, fmt.Errorf("midtrans returned no redirect url")
	}
	return &Session{ID: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
