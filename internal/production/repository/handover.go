package repository

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bartarleather/erp-backend/internal/production/unit"
)

// Handover directions, from the stage task's point of view
const (
	DirectionIncoming = "incoming" // this stage is the receiver
	DirectionOutgoing = "outgoing" // this stage is the giver
)

// Confirmation sides
const (
	SideGiver    = "giver"
	SideReceiver = "receiver"
)

// Confirmation is one side's sign-off on a handover form. Once Confirmed is
// true the record is write-once; re-confirming is a no-op.
type Confirmation struct {
	Confirmed bool       `json:"confirmed"`
	Actor     string     `json:"actor,omitempty"`
	At        *time.Time `json:"at,omitempty"`
}

// OrderRequirement is a single order's share of demand for a product inside
// a multi-order group run.
type OrderRequirement struct {
	OrderID    string    `json:"order_id"`
	RowIndex   int       `json:"row_index"`
	PieceUsage []float64 `json:"piece_usage,omitempty"`
	TotalUsage float64   `json:"total_usage"`
}

// HandoverGroup is one product's portion of a handover form
type HandoverGroup struct {
	ProductID        string             `json:"product_id"`
	ProductName      string             `json:"product_name,omitempty"`
	Unit             unit.Unit          `json:"unit,omitempty"`
	Category         string             `json:"category,omitempty"`
	Deliveries       []DeliveryRow      `json:"deliveries"`
	TotalSourceQty   float64            `json:"total_source_qty"`
	TotalOrderQty    float64            `json:"total_order_qty"`
	TotalHandoverQty float64            `json:"total_handover_qty"`
	Requirements     []OrderRequirement `json:"requirements,omitempty"`
}

// HandoverForm is one directional handover between two parties. Forms are
// permanent history: a stage task's list only grows, and there is no
// delete or cancel transition.
type HandoverForm struct {
	ID                   string          `json:"id"`
	Direction            string          `json:"direction"`
	Giver                string          `json:"giver"`
	Receiver             string          `json:"receiver"`
	SourceStageTaskID    string          `json:"source_stage_task_id,omitempty"`
	SourceShelfID        string          `json:"source_shelf_id,omitempty"`
	TargetShelfID        string          `json:"target_shelf_id,omitempty"`
	Groups               []HandoverGroup `json:"groups"`
	GiverConfirmation    Confirmation    `json:"giver_confirmation"`
	ReceiverConfirmation Confirmation    `json:"receiver_confirmation"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Settled reports whether both parties have confirmed.
func (f *HandoverForm) Settled() bool {
	return f.GiverConfirmation.Confirmed && f.ReceiverConfirmation.Confirmed
}

// HandoverStateVersion is the current handover blob shape.
const HandoverStateVersion = 2

// HandoverState is the versioned handover blob attached to a stage task.
// Two legacy shapes exist in old rows: a bare list of forms (unversioned)
// and a single form object. Both are normalized into this envelope at the
// read boundary; call sites never see a legacy shape.
type HandoverState struct {
	Version int             `json:"version"`
	Forms   []*HandoverForm `json:"forms"`
}

// Value implements driver.Valuer; always writes the current shape.
func (s HandoverState) Value() (driver.Value, error) {
	out := s
	out.Version = HandoverStateVersion
	if out.Forms == nil {
		out.Forms = []*HandoverForm{}
	}
	return json.Marshal(out)
}

// Scan implements sql.Scanner with legacy-shape normalization.
func (s *HandoverState) Scan(src interface{}) error {
	if src == nil {
		*s = HandoverState{Version: HandoverStateVersion}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for HandoverState", src)
	}
	state, err := decodeHandoverState(b)
	if err != nil {
		return err
	}
	*s = *state
	return nil
}

// decodeHandoverState normalizes any stored blob shape into the versioned
// envelope.
func decodeHandoverState(b []byte) (*HandoverState, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &HandoverState{Version: HandoverStateVersion}, nil
	}

	// Unversioned legacy shape: a bare list of forms.
	if trimmed[0] == '[' {
		var forms []*HandoverForm
		if err := json.Unmarshal(trimmed, &forms); err != nil {
			return nil, fmt.Errorf("failed to decode legacy handover list: %w", err)
		}
		return &HandoverState{Version: HandoverStateVersion, Forms: forms}, nil
	}

	var head struct {
		Version *int            `json:"version"`
		Forms   json.RawMessage `json:"forms"`
		Groups  json.RawMessage `json:"groups"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, fmt.Errorf("failed to inspect handover blob: %w", err)
	}

	// Current shape.
	if head.Version != nil {
		var state HandoverState
		if err := json.Unmarshal(trimmed, &state); err != nil {
			return nil, fmt.Errorf("failed to decode handover state: %w", err)
		}
		state.Version = HandoverStateVersion
		if state.Forms == nil {
			state.Forms = []*HandoverForm{}
		}
		return &state, nil
	}

	// Legacy single-form shape.
	if head.Groups != nil {
		var form HandoverForm
		if err := json.Unmarshal(trimmed, &form); err != nil {
			return nil, fmt.Errorf("failed to decode legacy handover form: %w", err)
		}
		return &HandoverState{Version: HandoverStateVersion, Forms: []*HandoverForm{&form}}, nil
	}

	return nil, fmt.Errorf("unrecognized handover blob shape")
}
