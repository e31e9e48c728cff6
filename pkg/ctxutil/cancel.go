/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

import (
	"context"
)

type key string

var cancelkey = key("cancel")

// CancelContext provides a cancelable context, which can be
// canceled with Cancel by everybody receiving the context.
func CancelContext(ctx context.Context) context.Context {
	return cancelContext(context.WithCancel(ctx))
}

func cancelContext(ctx context.Context, cancel context.CancelFunc) context.Context {
	return context.WithValue(ctx, cancelkey, cancel)
}

// Cancel cancels a context created by CancelContext, TimeoutContext
// or DeadlineContext. It returns false for other contexts.
func Cancel(ctx context.Context) bool {
	c, ok := ctx.Value(cancelkey).(context.CancelFunc)
	if ok {
		c()
	}
	return ok
}
