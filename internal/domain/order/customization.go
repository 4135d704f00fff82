// internal/domain/order/customization.go
package order

import (
	"fmt"
	"strings"
)

// CustomizationSchemaVersion is the current customization document version
const CustomizationSchemaVersion = 1

// CustomizationKind selects which payload of a Customization is populated
type CustomizationKind string

const (
	CustomizationNone      CustomizationKind = "none"
	CustomizationEngraving CustomizationKind = "engraving"
	CustomizationPrint     CustomizationKind = "print"
)

// Customization is the per-line personalisation. Exactly the payload named by
// Kind is set.
type Customization struct {
	SchemaVersion int               `json:"schemaVersion"`
	Kind          CustomizationKind `json:"kind"`
	Engraving     *Engraving        `json:"engraving,omitempty"`
	Print         *PrintDesign      `json:"print,omitempty"`
}

type Engraving struct {
	Text      string `json:"text"`
	Font      string `json:"font,omitempty"`
	Placement string `json:"placement,omitempty"`
}

type PrintDesign struct {
	DesignID  string   `json:"designId"`
	Placement string   `json:"placement,omitempty"`
	Colors    []string `json:"colors,omitempty"`
}

const (
	maxEngravingText = 120
	maxPrintColors   = 8
)

// Validate checks the document shape. A zero SchemaVersion is read as the current one.
func (c *Customization) Validate() error {
	if c == nil {
		return nil
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = CustomizationSchemaVersion
	}
	if c.SchemaVersion != CustomizationSchemaVersion {
		return fmt.Errorf("unsupported customization schemaVersion %d", c.SchemaVersion)
	}

	switch c.Kind {
	case CustomizationNone, "":
		if c.Engraving != nil || c.Print != nil {
			return fmt.Errorf("customization of kind none must not carry a payload")
		}
		c.Kind = CustomizationNone
	case CustomizationEngraving:
		if c.Print != nil {
			return fmt.Errorf("engraving customization must not carry a print payload")
		}
		if c.Engraving == nil || strings.TrimSpace(c.Engraving.Text) == "" {
			return fmt.Errorf("engraving text is required")
		}
		if len([]rune(c.Engraving.Text)) > maxEngravingText {
			return fmt.Errorf("engraving text exceeds %d characters", maxEngravingText)
		}
	case CustomizationPrint:
		if c.Engraving != nil {
			return fmt.Errorf("print customization must not carry an engraving payload")
		}
		if c.Print == nil || strings.TrimSpace(c.Print.DesignID) == "" {
			return fmt.Errorf("print designId is required")
		}
		if len(c.Print.Colors) > maxPrintColors {
			return fmt.Errorf("print customization allows at most %d colors", maxPrintColors)
		}
	default:
		return fmt.Errorf("unknown customization kind %q", c.Kind)
	}
	return nil
}

// Summary is a one-line human description used on invoices and emails
func (c *Customization) Summary() string {
	if c == nil {
		return ""
	}
	switch c.Kind {
	case CustomizationEngraving:
		if c.Engraving != nil {
			return fmt.Sprintf("Engraving: %q", c.Engraving.Text)
		}
	case CustomizationPrint:
		if c.Print != nil {
			return "Print: " + c.Print.DesignID
		}
	}
	return ""
}
