package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrLoginActive        ErrCode = "LOGIN_ALREADY_ACTIVE"
	ErrLoginInvalidated   ErrCode = "LOGIN_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam & session lifecycle ──────────────────────────────────────
	ErrExamNotFound          ErrCode = "EXAM_NOT_FOUND"
	ErrInvalidBlueprint      ErrCode = "INVALID_BLUEPRINT"
	ErrAlreadyAssigned       ErrCode = "ALREADY_ASSIGNED"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrNotAssigned           ErrCode = "NOT_ASSIGNED"
	ErrSessionInvalid        ErrCode = "SESSION_INVALID"
	ErrDuplicateQuestion     ErrCode = "DUPLICATE_QUESTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server / collaborators ────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrLoginActive:
		return "You are already logged in on another device."
	case ErrLoginInvalidated:
		return "Your login session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam & session lifecycle ──────────────────────────────────────
	case ErrExamNotFound:
		return "The exam does not exist."
	case ErrInvalidBlueprint:
		return "The blueprint is empty or a block is missing subject/count."
	case ErrAlreadyAssigned:
		return "Questions are already assigned to this exam."
	case ErrInsufficientQuestions:
		return "Not enough questions match the blueprint."
	case ErrNotAssigned:
		return "Exam questions have not been assigned yet."
	case ErrSessionInvalid:
		return "The exam session is invalid, expired, or already completed."
	case ErrDuplicateQuestion:
		return "A very similar question already exists."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server / collaborators ────────────────────────────────────────
	case ErrStoreUnavailable:
		return "The data store is temporarily unavailable. Please retry."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
