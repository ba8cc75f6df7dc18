// Package envelope builds the uniform {message, success, statusCode, data}
// response shared by the HTTP and gRPC transports, and maps service errors
// to statuses and public messages.
package envelope

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc/codes"
)

type Envelope struct {
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
}

type Operation string

const (
	OpRegister       Operation = "register"
	OpLogin          Operation = "login"
	OpRefresh        Operation = "refresh"
	OpLogout         Operation = "logout"
	OpForgotPassword Operation = "forgot_password"
	OpResetPassword  Operation = "reset_password"
	OpMe             Operation = "me"
	OpAvatarUpload   Operation = "avatar_upload"
	OpPing           Operation = "ping"
)

var successMessages = map[Operation]string{
	OpRegister:       "Registration successful",
	OpLogin:          "Login successful",
	OpRefresh:        "Token refreshed successfully",
	OpLogout:         "Logout successful",
	OpForgotPassword: "OTP sent to your email",
	OpResetPassword:  "Password reset successful",
	OpMe:             "Profile fetched successfully",
	OpAvatarUpload:   "Upload URL created",
	OpPing:           "pong",
}

type failureKey struct {
	op   Operation
	kind error
}

// failureMessages overrides the per-kind defaults. Login, refresh and reset
// each have exactly one message per kind so distinct causes stay hidden.
var failureMessages = map[failureKey]string{
	{OpRegister, common.ErrorConflict}:        "Email already registered",
	{OpRegister, common.ErrorInternal}:        "An error occurred while processing your registration.",
	{OpLogin, common.ErrorUnauthorized}:       "Invalid credentials",
	{OpLogin, common.ErrorInternal}:           "An error occurred while processing your login.",
	{OpRefresh, common.ErrorUnauthorized}:     "Invalid or expired refresh token",
	{OpLogout, common.ErrorInternal}:          "An error occurred while processing your logout.",
	{OpForgotPassword, common.ErrorNotFound}:  "User not found",
	{OpForgotPassword, common.ErrorInternal}:  "An error occurred while sending the OTP.",
	{OpResetPassword, common.ErrorBadRequest}: "Invalid or expired OTP",
	{OpResetPassword, common.ErrorNotFound}:   "User not found",
	{OpResetPassword, common.ErrorInternal}:   "An error occurred while resetting your password.",
	{OpMe, common.ErrorNotFound}:              "User not found",
	{OpAvatarUpload, common.ErrorBadRequest}:  "Unsupported content type",
	{OpAvatarUpload, common.ErrorNotFound}:    "User not found",
}

var defaultMessages = map[error]string{
	common.ErrorConflict:     "Resource already exists",
	common.ErrorUnauthorized: "Unauthorized",
	common.ErrorNotFound:     "Not found",
	common.ErrorBadRequest:   "Bad request",
	common.ErrorInternal:     "Internal server error",
}

// Kind reduces err to one of the taxonomy sentinels. Anything unknown is
// common.ErrorInternal.
func Kind(err error) error {
	for _, k := range []error{
		common.ErrorConflict,
		common.ErrorUnauthorized,
		common.ErrorNotFound,
		common.ErrorBadRequest,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
		return common.ErrorUnauthorized
	}
	return common.ErrorInternal
}

// HTTPStatus maps err to the response status code.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case common.ErrorConflict:
		return http.StatusConflict
	case common.ErrorUnauthorized:
		return http.StatusUnauthorized
	case common.ErrorNotFound:
		return http.StatusNotFound
	case common.ErrorBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps err to a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch Kind(err) {
	case common.ErrorConflict:
		return codes.AlreadyExists
	case common.ErrorUnauthorized:
		return codes.Unauthenticated
	case common.ErrorNotFound:
		return codes.NotFound
	case common.ErrorBadRequest:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// OK wraps data in a success envelope. nil data becomes {}.
func OK(op Operation, data any) Envelope {
	if data == nil {
		data = struct{}{}
	}
	return Envelope{
		Message:    successMessages[op],
		Success:    true,
		StatusCode: http.StatusOK,
		Data:       data,
	}
}

// Fail builds the failure envelope for err. The message never includes
// err's text.
func Fail(op Operation, err error) Envelope {
	kind := Kind(err)

	msg, ok := failureMessages[failureKey{op, kind}]
	if !ok {
		msg = defaultMessages[kind]
	}

	return Envelope{
		Message:    msg,
		Success:    false,
		StatusCode: HTTPStatus(kind),
		Data:       struct{}{},
	}
}

// Invalid is the failure envelope for a request rejected by validation.
func Invalid(msg string) Envelope {
	return Envelope{
		Message:    msg,
		Success:    false,
		StatusCode: http.StatusBadRequest,
		Data:       struct{}{},
	}
}
