package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrMemberNotFound ErrCode = "MEMBER_NOT_FOUND"
	ErrLessonNotFound ErrCode = "LESSON_NOT_FOUND"

	// ─── Enrollment ────────────────────────────────────────────────────
	ErrAlreadyJoined ErrCode = "ALREADY_JOINED"
	ErrNoCount       ErrCode = "NO_COUNT"
	ErrCantJoin      ErrCode = "CANT_JOIN"
	ErrNotJoined     ErrCode = "NOT_JOINED"
	ErrCantLeave     ErrCode = "CANT_LEAVE"
	ErrLessonFull    ErrCode = "LESSON_FULL"

	// ─── Schedule ──────────────────────────────────────────────────────
	ErrAlreadyGenerated ErrCode = "ALREADY_GENERATED"
	ErrGenerationFailed ErrCode = "GENERATION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "認証トークンが必要です。"
	case ErrTokenInvalid:
		return "認証トークンが無効です。"
	case ErrTokenExpired:
		return "認証トークンの有効期限が切れています。"

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "この操作を行う権限がありません。"
	case ErrAdminAccessOnly:
		return "この操作は管理者のみ利用できます。"

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "入力内容に誤りがあります。"
	case ErrInvalidID:
		return "IDの形式が正しくありません。"

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "データが見つかりません。"
	case ErrMemberNotFound:
		return "会員が見つかりません。"
	case ErrLessonNotFound:
		return "レッスンが見つかりません。"

	// ─── Enrollment ────────────────────────────────────────────────────
	case ErrAlreadyJoined:
		return "すでに参加しています。"
	case ErrNoCount:
		return "今月の参加可能回数が残っていません。"
	case ErrCantJoin:
		return "開始時刻を過ぎたレッスンには参加できません。"
	case ErrNotJoined:
		return "このレッスンには参加していません。"
	case ErrCantLeave:
		return "開始時刻を過ぎたレッスンはキャンセルできません。"
	case ErrLessonFull:
		return "このレッスンは定員に達しています。"

	// ─── Schedule ──────────────────────────────────────────────────────
	case ErrAlreadyGenerated:
		return "翌月のレッスンはすでに作成されています。"
	case ErrGenerationFailed:
		return "レッスンの作成に失敗しました。"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "リクエストが多すぎます。しばらくしてから再度お試しください。"

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "サーバー内部でエラーが発生しました。"
	default:
		return "予期しないエラーが発生しました。"
	}
}
