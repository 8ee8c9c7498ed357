package card

// Field names one placeable piece of card content.
type Field string

const (
	FieldPhoto           Field = "photo"
	FieldName            Field = "name"
	FieldRG              Field = "rg"
	FieldCPF             Field = "cpf"
	FieldRole            Field = "role"
	FieldCompany         Field = "company"
	FieldAssociationDate Field = "association_date"
	FieldExpirationDate  Field = "expiration_date"
	FieldDependentName   Field = "dependent_name"
)

// DrawOrder is the fixed z-order for rendering: later fields paint on top of
// earlier ones when they overlap. Both the preview and the print renderer
// iterate this slice so the two outputs stay pixel-consistent.
var DrawOrder = []Field{
	FieldPhoto,
	FieldName,
	FieldRG,
	FieldCPF,
	FieldRole,
	FieldCompany,
	FieldAssociationDate,
	FieldExpirationDate,
	FieldDependentName,
}

// Label returns the operator-facing field label.
func (f Field) Label() string {
	switch f {
	case FieldPhoto:
		return "Foto"
	case FieldName:
		return "Nome"
	case FieldRG:
		return "RG"
	case FieldCPF:
		return "CPF"
	case FieldRole:
		return "Cargo"
	case FieldCompany:
		return "Empresa"
	case FieldAssociationDate:
		return "Data de Associação"
	case FieldExpirationDate:
		return "Data de Validade"
	case FieldDependentName:
		return "Nome do Dependente"
	}
	return string(f)
}
