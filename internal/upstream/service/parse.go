package service

import (
	"strings"
	"time"

	"github.com/msiav/vehicle-cache/internal/upstream/domain"
)

// movementLayouts are the timestamp formats observed in the provider's
// dataMovimento field.
var movementLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// The provider serves the same logical record in more than one shape:
// fields appear either at the top level or nested under contrato/veiculo/
// devedor objects depending on the endpoint version. The wire types carry
// every observed alternative and flatten with first-non-empty precedence.

type wireContract struct {
	Contract string `json:"contrato"`
	Protocol string `json:"protocolo"`
}

type wireVehicle struct {
	Plate   string `json:"placa"`
	Model   string `json:"modelo"`
	Chassis string `json:"chassi"`
	Renavam string `json:"renavam"`
	Gravame string `json:"gravame"`
}

type wireDebtor struct {
	TaxID   string `json:"cpf"`
	Address string `json:"endereco"`
}

type wireNotification struct {
	ID            *int64         `json:"id"`
	Contract      string         `json:"contrato"`
	Contracts     []wireContract `json:"contratos"`
	Plate         string         `json:"placa"`
	Model         string         `json:"modelo"`
	StateCode     string         `json:"uf"`
	Vehicle       *wireVehicle   `json:"veiculo"`
	Creditor      string         `json:"credor"`
	CreditorName  string         `json:"nomeCredor"`
	DebtorTaxID   string         `json:"cpfDevedor"`
	DebtorAddress string         `json:"enderecoDevedor"`
	Debtor        *wireDebtor    `json:"devedor"`
	Protocol      string         `json:"protocolo"`
	Stage         string         `json:"etapa"`
	Status        string         `json:"status"`
	LastMovement  string         `json:"dataMovimento"`
}

func (w *wireNotification) toDomain(now time.Time) domain.Notification {
	n := domain.Notification{
		ExternalID:         w.ID,
		Contract:           strings.TrimSpace(w.Contract),
		Plate:              strings.TrimSpace(w.Plate),
		Model:              strings.TrimSpace(w.Model),
		StateCode:          strings.ToUpper(strings.TrimSpace(w.StateCode)),
		CreditorName:       firstNonEmpty(w.Creditor, w.CreditorName),
		DebtorTaxID:        strings.TrimSpace(w.DebtorTaxID),
		DebtorAddress:      strings.TrimSpace(w.DebtorAddress),
		Protocol:           strings.TrimSpace(w.Protocol),
		Stage:              strings.TrimSpace(w.Stage),
		ApprehensionStatus: strings.TrimSpace(w.Status),
		LastMovementAt:     parseMovement(w.LastMovement, now),
	}

	if n.Contract == "" && len(w.Contracts) > 0 {
		n.Contract = strings.TrimSpace(w.Contracts[0].Contract)
	}
	if n.Protocol == "" && len(w.Contracts) > 0 {
		n.Protocol = strings.TrimSpace(w.Contracts[0].Protocol)
	}
	if w.Vehicle != nil {
		if n.Plate == "" {
			n.Plate = strings.TrimSpace(w.Vehicle.Plate)
		}
		if n.Model == "" {
			n.Model = strings.TrimSpace(w.Vehicle.Model)
		}
	}
	if w.Debtor != nil {
		if n.DebtorTaxID == "" {
			n.DebtorTaxID = strings.TrimSpace(w.Debtor.TaxID)
		}
		if n.DebtorAddress == "" {
			n.DebtorAddress = strings.TrimSpace(w.Debtor.Address)
		}
	}

	return n
}

type wireCreditor struct {
	Address string `json:"endereco"`
}

type wireDetailDebtor struct {
	TaxID   string `json:"cpfCnpj"`
	Address string `json:"endereco"`
}

type wireDetail struct {
	Protocol      string             `json:"protocolo"`
	Contract      *wireContract      `json:"contrato"`
	Creditor      *wireCreditor      `json:"credor"`
	Debtors       []wireDetailDebtor `json:"devedores"`
	DebtorTaxID   string             `json:"cpfDevedor"`
	DebtorAddress string             `json:"enderecoDevedor"`
	Chassis       string             `json:"chassi"`
	Renavam       string             `json:"renavam"`
	Gravame       string             `json:"gravame"`
	Vehicle       *wireVehicle       `json:"veiculo"`
	Debtor        *wireDebtor        `json:"devedor"`
}

func (w *wireDetail) toDomain() *domain.VehicleDetail {
	d := &domain.VehicleDetail{
		Protocol:    optional(w.Protocol),
		DebtorTaxID: optional(w.DebtorTaxID),
		Chassis:     optional(w.Chassis),
		Renavam:     optional(w.Renavam),
		Gravame:     optional(w.Gravame),
	}

	if d.Protocol == nil && w.Contract != nil {
		d.Protocol = optional(w.Contract.Protocol)
	}
	if w.Vehicle != nil {
		if d.Chassis == nil {
			d.Chassis = optional(w.Vehicle.Chassis)
		}
		if d.Renavam == nil {
			d.Renavam = optional(w.Vehicle.Renavam)
		}
		if d.Gravame == nil {
			d.Gravame = optional(w.Vehicle.Gravame)
		}
	}
	if d.DebtorTaxID == nil && len(w.Debtors) > 0 {
		d.DebtorTaxID = optional(w.Debtors[0].TaxID)
	}
	if w.Debtor != nil && d.DebtorTaxID == nil {
		d.DebtorTaxID = optional(w.Debtor.TaxID)
	}

	// The creditor address is the preferred city source; debtor addresses
	// fill in when the creditor block is absent.
	if w.Creditor != nil {
		d.Address = optional(w.Creditor.Address)
	}
	if d.Address == nil {
		d.Address = optional(w.DebtorAddress)
	}
	if d.Address == nil && len(w.Debtors) > 0 {
		d.Address = optional(w.Debtors[0].Address)
	}
	if d.Address == nil && w.Debtor != nil {
		d.Address = optional(w.Debtor.Address)
	}

	return d
}

// parseMovement tries the known timestamp layouts and falls back to the
// current time so one malformed date never drops a record.
func parseMovement(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	for _, layout := range movementLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return now
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func optional(value string) *string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return &trimmed
	}
	return nil
}
