package memory

// Index field names of a stored memory document.
const (
	FieldID                = "id"
	FieldImagePath         = "image_path"
	FieldDescription       = "description"
	FieldDescriptionVector = "description_vector"
	FieldOCRText           = "ocr_text"
	FieldOCRVector         = "ocr_text_vector"
	FieldLocation          = "location"
	FieldAddress           = "address"
	FieldCity              = "city"
	FieldState             = "state"
	FieldZip               = "zip"
	FieldCountry           = "country"
	FieldTags              = "tags"
	FieldMetadata          = "metadata"
	FieldTimestamp         = "timestamp"
)

// VectorFieldPattern matches every embedding field; used to strip vectors from returned sources.
const VectorFieldPattern = "*_vector"
