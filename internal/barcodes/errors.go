package barcodes

import (
	"fmt"

	"github.com/stocktrack/barcodes/internal/platform/httpx"
)

var (
	ErrCodeRequired   = fmt.Errorf("%w: barcode is required", httpx.ErrValidation)
	ErrFieldsRequired = fmt.Errorf("%w: required fields missing", httpx.ErrValidation)
	ErrInvalidDate    = fmt.Errorf("%w: invalid date", httpx.ErrValidation)
	ErrInvalidBody    = fmt.Errorf("%w: malformed request body", httpx.ErrValidation)

	ErrNotFound  = fmt.Errorf("barcode %w", httpx.ErrNotFound)
	ErrDuplicate = fmt.Errorf("barcode %w", httpx.ErrDuplicate)
)

// Client-facing messages. Store failures never expose the underlying error.
const (
	msgCodeRequired   = "El código de barras es obligatorio."
	msgFieldsRequired = "Todos los campos son obligatorios."
	msgInvalidDate    = "Formato de fecha inválido."
	msgInvalidBody    = "Cuerpo de la solicitud inválido."
	msgNotFound       = "Código no encontrado."

	msgCheckFailed  = "Error al comprobar el código en la base de datos."
	msgListFailed   = "Error al obtener los productos de la base de datos."
	msgSaveFailed   = "Error al guardar el código en la base de datos."
	msgUpdateFailed = "Error al actualizar los detalles en la base de datos."

	msgSaved   = "Código guardado con éxito!"
	msgUpdated = "Detalles actualizados con éxito!"
)
