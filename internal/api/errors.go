package api

import (
	"errors"
	"net/http"

	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// User-visible error messages. These are stable contract values; clients
// display them verbatim.
const (
	MsgNotFound        = "资源不存在"
	MsgForbidden       = "没有权限执行此操作"
	MsgBadCredentials  = "邮箱或密码错误"
	MsgEmailExists     = "该邮箱已被注册"
	MsgMemberExists    = "该用户已是工作区成员"
	MsgLastOwner       = "工作区必须保留至少一名所有者"
	MsgConflict        = "资源状态已变化，请刷新后重试"
	MsgOpenIssueExists = "该执行已存在未关闭的缺陷"
	MsgInternalError   = "服务器内部错误"
	MsgSelfTarget      = "不能对自己的账户执行此操作"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so handlers
// never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, ErrMembershipForbidden):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrOpenIssueExists),
		errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrMemberExists),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, domain.ErrLastOwner):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, errInvalidIDParam),
		errors.Is(err, shared.ErrMalformedJSON):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// mapErrorToEnvelope translates an internal error into the envelope's business
// code and user-visible message.
func mapErrorToEnvelope(err error) (code int, message string) {
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		return shared.CodeBadCredential, MsgBadCredentials

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return shared.CodeUnauthorized, "请先登录"

	case errors.Is(err, ErrMembershipForbidden):
		return shared.CodeForbidden, MsgForbidden

	case errors.Is(err, store.ErrNotFound):
		return shared.CodeNotFound, MsgNotFound

	case errors.Is(err, errInvalidIDParam):
		return shared.CodeValidation, MsgInvalidID

	case errors.Is(err, store.ErrEmailExists):
		return shared.CodeValidation, MsgEmailExists

	case errors.Is(err, store.ErrMemberExists):
		return shared.CodeValidation, MsgMemberExists

	case errors.Is(err, domain.ErrLastOwner):
		return shared.CodeValidation, MsgLastOwner

	case errors.Is(err, store.ErrOpenIssueExists):
		return shared.CodeValidation, MsgOpenIssueExists

	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrDuplicate):
		return shared.CodeValidation, MsgConflict

	case errors.Is(err, shared.ErrMalformedJSON):
		return shared.CodeValidation, shared.MsgMalformedJSON

	case errors.Is(err, store.ErrInvalidEntity), errors.Is(err, domain.ErrValidation):
		return shared.CodeValidation, "请求数据未通过校验"

	default:
		return shared.CodeGeneric, MsgInternalError
	}
}

// RespondMappedError maps err to the HTTP status, envelope code, and
// user-visible message, logging the underlying error server-side.
func RespondMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	code, message := mapErrorToEnvelope(err)
	shared.RespondErrorAndLog(w, r, status, code, message, err)
}

// RespondValidationError writes a 400 validation failure naming the first
// violated rule, per the fail-fast contract.
func RespondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	message := "请求数据未通过校验"
	if err != nil {
		if errors.Is(err, shared.ErrMalformedJSON) {
			message = shared.MsgMalformedJSON
		} else {
			message = err.Error()
		}
	}
	shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, message)
}

// RespondNotFound writes the uniform 404 envelope.
func RespondNotFound(w http.ResponseWriter, r *http.Request) {
	shared.RespondError(w, r, http.StatusNotFound, shared.CodeNotFound, MsgNotFound)
}

// RespondForbidden writes the uniform 403 envelope.
func RespondForbidden(w http.ResponseWriter, r *http.Request) {
	shared.RespondError(w, r, http.StatusForbidden, shared.CodeForbidden, MsgForbidden)
}
