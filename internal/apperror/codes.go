package apperror

// Stable error codes exposed to API clients.
const (
	// ─── Resources ─────────────────────────────────────────────────────
	CodeQuizNotFound         = "QUIZ_NOT_FOUND"
	CodeAttemptNotFound      = "ATTEMPT_NOT_FOUND"
	CodeResultNotFound       = "RESULT_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeAssignmentNotFound   = "ASSIGNMENT_NOT_FOUND"
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	CodeQuizAccessDenied    = "QUIZ_ACCESS_DENIED"
	CodeQuizNotPublished    = "QUIZ_NOT_PUBLISHED"
	CodeActiveAttemptExists = "ACTIVE_ATTEMPT_EXISTS"
	CodeMaxAttemptsReached  = "MAX_ATTEMPTS_REACHED"
	CodeQuizExpired         = "QUIZ_EXPIRED"
	CodeAlreadySubmitted    = "ALREADY_SUBMITTED"
	CodeQuestionNotInQuiz   = "QUESTION_NOT_IN_QUIZ"

	// ─── Catalog ───────────────────────────────────────────────────────
	CodeInvalidOperation = "INVALID_OPERATION"
	CodeValidation       = "VALIDATION_ERROR"

	// ─── Auth ──────────────────────────────────────────────────────────
	CodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInsufficientPerms  = "INSUFFICIENT_PERMISSIONS"
)

// Sentinels for conditions that carry no per-call detail.
var (
	ErrQuizNotFound         = New(KindNotFound, CodeQuizNotFound, "quiz not found")
	ErrAttemptNotFound      = New(KindNotFound, CodeAttemptNotFound, "attempt not found")
	ErrResultNotFound       = New(KindNotFound, CodeResultNotFound, "result not found")
	ErrUserNotFound         = New(KindNotFound, CodeUserNotFound, "user not found")
	ErrAssignmentNotFound   = New(KindNotFound, CodeAssignmentNotFound, "assignment not found")
	ErrNotificationNotFound = New(KindNotFound, CodeNotificationNotFound, "notification not found")

	ErrQuizAccessDenied    = New(KindPermissionDenied, CodeQuizAccessDenied, "you do not have access to this quiz")
	ErrQuizNotPublished    = New(KindPermissionDenied, CodeQuizNotPublished, "quiz is not published")
	ErrMaxAttemptsReached  = New(KindPermissionDenied, CodeMaxAttemptsReached, "maximum number of attempts reached")
	ErrNotOwner            = New(KindPermissionDenied, CodeInsufficientPerms, "you do not have permission to access this resource")
	ErrActiveAttemptExists = New(KindConflict, CodeActiveAttemptExists, "an attempt for this quiz is already in progress")
	ErrAlreadySubmitted    = New(KindConflict, CodeAlreadySubmitted, "attempt has already been submitted")
	ErrQuizExpired         = New(KindExpired, CodeQuizExpired, "time limit for this attempt has passed")
	ErrQuestionNotInQuiz   = New(KindValidation, CodeQuestionNotInQuiz, "question does not belong to this quiz")

	ErrQuizPublished  = New(KindInvalidOperation, CodeInvalidOperation, "published quizzes cannot be modified")
	ErrNoQuestions    = New(KindInvalidOperation, CodeInvalidOperation, "quiz has no questions")
	ErrAlreadyPublish = New(KindInvalidOperation, CodeInvalidOperation, "quiz is already published")

	ErrUserAlreadyExists  = New(KindConflict, CodeUserAlreadyExists, "email or username already registered")
	ErrInvalidCredentials = New(KindUnauthorized, CodeInvalidCredentials, "invalid username or password")
	ErrInvalidToken       = New(KindUnauthorized, CodeInvalidToken, "invalid or expired token")
)
