package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/devmatch/internal/errors"
)

func TestMap(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"not found", svcErr.NotFound("match not found"), codes.NotFound, "match not found"},
		{"denied", svcErr.PermissionDenied("not authorized for this chat"), codes.PermissionDenied, "not authorized for this chat"},
		{"wrapped denied", fmt.Errorf("delete: %w", svcErr.PermissionDenied("only the sender can delete")), codes.PermissionDenied, "only the sender can delete"},
		{"invalid", svcErr.Invalid("content is empty"), codes.InvalidArgument, "content is empty"},
		{"rate limited", svcErr.RateLimited("slow down"), codes.ResourceExhausted, "slow down"},
		{"upstream", svcErr.Upstream("scoring unavailable", context.DeadlineExceeded), codes.Unavailable, "scoring unavailable"},
		{"conflict", svcErr.Conflict("already matched"), codes.AlreadyExists, "already matched"},
		{"gorm", gorm.ErrRecordNotFound, codes.NotFound, "record not found"},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded, "request timed out"},
		{"canceled", context.Canceled, codes.Canceled, "request was canceled"},
		{"other", fmt.Errorf("boom"), codes.Internal, "boom"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, ok := status.FromError(svcErr.Map(tc.err))
			assert.True(t, ok)
			assert.Equal(t, tc.code, st.Code())
			assert.Equal(t, tc.msg, st.Message())
		})
	}
}

func TestMap_PassesStatusThrough(t *testing.T) {
	in := svcErr.InvalidArgument("match_id must be a valid uint64")
	assert.Equal(t, in, svcErr.Map(in))
	assert.Nil(t, svcErr.Map(nil))
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", svcErr.NotFound("message not found"))
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
	assert.False(t, svcErr.IsKind(nil, svcErr.KindNotFound))
	assert.Equal(t, svcErr.KindUnknown, svcErr.KindOf(fmt.Errorf("plain")))
}
