package testutil

import (
	"context"

	"github.com/facto/facto/internal/types"
)

const DefaultUserID = "user_test"

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxUserID, DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}
