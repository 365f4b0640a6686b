package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

var kindCodes = map[apperr.Kind]connect.Code{
	apperr.KindNotFound:      connect.CodeNotFound,
	apperr.KindForbidden:     connect.CodePermissionDenied,
	apperr.KindConflict:      connect.CodeAborted,
	apperr.KindGone:          connect.CodeFailedPrecondition,
	apperr.KindExpired:       connect.CodeFailedPrecondition,
	apperr.KindUnauthorized:  connect.CodeUnauthenticated,
	apperr.KindDataIntegrity: connect.CodeDataLoss,
	apperr.KindInvalid:       connect.CodeInvalidArgument,
	apperr.KindUnavailable:   connect.CodeUnavailable,
}

// toConnectError maps a classified error to a connect error. The kind is repeated in
// the Error-Reason header so Gone and Expired stay distinguishable.
// Internal and Unavailable errors are logged and returned without detail.
func toConnectError(ctx context.Context, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	kind := apperr.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		zerolog.Ctx(ctx).Error().Err(err).Msg("internal error")
		cerr := connect.NewError(connect.CodeInternal, errors.New("internal error"))
		cerr.Meta().Set(orgkeeperv1.ErrorReasonHeader, apperr.KindInternal.String())
		return cerr
	}

	if kind == apperr.KindUnavailable || kind == apperr.KindDataIntegrity {
		zerolog.Ctx(ctx).Warn().Err(err).Str("reason", kind.String()).Msg("request failed upstream")
	}

	cause := err
	if kind == apperr.KindUnavailable {
		cause = errors.New("service temporarily unavailable")
	}

	cerr := connect.NewError(code, cause)
	cerr.Meta().Set(orgkeeperv1.ErrorReasonHeader, kind.String())
	return cerr
}

// invalidID reports a malformed identifier in a request field.
func invalidID(op, field string) error {
	return apperr.Errorf(apperr.KindInvalid, op, "%s: must be a valid id", field)
}
