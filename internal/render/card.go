package render

import (
	"time"

	"carteirinha/internal/card"
)

// CardData is one card's resolved content: the text per field, the photo
// state and the background image URL (already resolved by the caller, empty
// for a blank card). Renderers never touch person records directly.
type CardData struct {
	Background  string
	Photo       PhotoState
	PhotoURL    string
	IsDependent bool

	values map[card.Field]string
}

// Value returns the text rendered at a field's slot.
func (d CardData) Value(f card.Field) string {
	return d.values[f]
}

// AssociateCard resolves an associate's data into card content.
func AssociateCard(a Person, backgroundURL string) CardData {
	return CardData{
		Background: backgroundURL,
		Photo:      a.Photo,
		PhotoURL:   a.PhotoURL,
		values: map[card.Field]string{
			card.FieldName:            upper(a.Name),
			card.FieldRG:              upper(a.RG),
			card.FieldCPF:             upper(a.CPF),
			card.FieldRole:            upper(a.Role),
			card.FieldCompany:         upper(a.Company),
			card.FieldAssociationDate: FormatDate(a.AssociationDate),
			card.FieldExpirationDate:  FormatDate(a.ExpirationDate),
		},
	}
}

// DependentCard resolves a dependent's data into card content. The name slot
// carries the owning associate's name; the dependent's own name renders at
// the dependent_name slot. Role never renders for dependents.
func DependentCard(d Person, associateName string, backgroundURL string) CardData {
	return CardData{
		Background:  backgroundURL,
		Photo:       d.Photo,
		PhotoURL:    d.PhotoURL,
		IsDependent: true,
		values: map[card.Field]string{
			card.FieldName:            upper(associateName),
			card.FieldDependentName:   upper(d.Name),
			card.FieldRG:              upper(d.RG),
			card.FieldCPF:             upper(d.CPF),
			card.FieldCompany:         upper(d.Company),
			card.FieldAssociationDate: FormatDate(d.AssociationDate),
			card.FieldExpirationDate:  FormatDate(d.ExpirationDate),
		},
	}
}

// SampleCard builds the placeholder content the layout editor previews
// against: no real person, today's date on both date fields.
func SampleCard(backgroundURL string) CardData {
	today := time.Now()
	return CardData{
		Background: backgroundURL,
		Photo:      PhotoNone,
		values: map[card.Field]string{
			card.FieldName:            "NOME DO ASSOCIADO",
			card.FieldRG:              "00.000.000-0",
			card.FieldCPF:             "000.000.000-00",
			card.FieldRole:            "EXEMPLO",
			card.FieldCompany:         "EXEMPLO",
			card.FieldAssociationDate: FormatDate(&today),
			card.FieldExpirationDate:  FormatDate(&today),
			card.FieldDependentName:   "NOME DO DEPENDENTE",
		},
	}
}

// fieldView is one positioned box handed to the card template.
type fieldView struct {
	Field card.Field
	Label string
	Value string
	X     int
	Y     int
}

// cardView is the template model for a single card.
type cardView struct {
	Background string
	Photo      *fieldView
	PhotoState PhotoState
	PhotoURL   string
	Fields     []fieldView
}

// labels prefixed onto text fields, matching the physical card wording.
var fieldPrefixes = map[card.Field]string{
	card.FieldRG:              "RG: ",
	card.FieldCPF:             "CPF: ",
	card.FieldRole:            "CARGO: ",
	card.FieldCompany:         "EMPRESA: ",
	card.FieldAssociationDate: "Associação: ",
	card.FieldExpirationDate:  "Validade: ",
}

// buildCardView composes layout geometry with resolved content. Hidden
// fields are skipped outright so they leave no trace in the output, and the
// remaining fields follow the fixed draw order.
func buildCardView(layout card.Layout, data CardData) cardView {
	view := cardView{
		Background: data.Background,
		PhotoState: data.Photo,
		PhotoURL:   data.PhotoURL,
	}

	for _, f := range card.DrawOrder {
		if !layout.Visible(f) {
			continue
		}
		// Role belongs to associates; the this-is-a-dependent-of line only
		// exists in dependent context.
		if f == card.FieldRole && data.IsDependent {
			continue
		}
		if f == card.FieldDependentName && !data.IsDependent && data.Value(f) == "" {
			continue
		}

		pos := layout.PositionOf(f)
		if f == card.FieldPhoto {
			view.Photo = &fieldView{Field: f, X: pos.X, Y: pos.Y}
			continue
		}
		view.Fields = append(view.Fields, fieldView{
			Field: f,
			Label: fieldPrefixes[f],
			Value: data.Value(f),
			X:     pos.X,
			Y:     pos.Y,
		})
	}
	return view
}
