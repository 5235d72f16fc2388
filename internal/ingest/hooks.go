package ingest

import (
	"context"
	"errors"

	"github.com/pateepk/AgileSite-sub083/internal/settings"
)

// Interceptor observes batches around the bulk write.
//
// BeforeBatch may veto the write by returning false; AfterBatch is still called
// in that case so interceptors can release whatever BeforeBatch acquired.
// AfterBatch cannot veto anything.
type Interceptor interface {
	BeforeBatch(ctx context.Context, batch Batch) bool
	AfterBatch(ctx context.Context, batch Batch) error
}

// NopInterceptor lets every batch through and observes nothing.
type NopInterceptor struct{}

// BeforeBatch implements Interceptor.
func (NopInterceptor) BeforeBatch(context.Context, Batch) bool { return true }

// AfterBatch implements Interceptor.
func (NopInterceptor) AfterBatch(context.Context, Batch) error { return nil }

// InterceptorFuncs adapts a pair of functions to Interceptor. Nil functions are no-ops.
type InterceptorFuncs struct {
	Before func(ctx context.Context, batch Batch) bool
	After  func(ctx context.Context, batch Batch) error
}

// BeforeBatch implements Interceptor.
func (f InterceptorFuncs) BeforeBatch(ctx context.Context, batch Batch) bool {
	if f.Before == nil {
		return true
	}
	return f.Before(ctx, batch)
}

// AfterBatch implements Interceptor.
func (f InterceptorFuncs) AfterBatch(ctx context.Context, batch Batch) error {
	if f.After == nil {
		return nil
	}
	return f.After(ctx, batch)
}

// Interceptors chains several interceptors. The first veto short-circuits the
// remaining BeforeBatch calls; AfterBatch runs on every member.
type Interceptors []Interceptor

// BeforeBatch implements Interceptor.
func (is Interceptors) BeforeBatch(ctx context.Context, batch Batch) bool {
	for _, i := range is {
		if !i.BeforeBatch(ctx, batch) {
			return false
		}
	}
	return true
}

// AfterBatch implements Interceptor.
func (is Interceptors) AfterBatch(ctx context.Context, batch Batch) error {
	var err error
	for _, i := range is {
		err = errors.Join(err, i.AfterBatch(ctx, batch))
	}
	return err
}

// SettingGate vetoes batches while the named setting resolves to zero.
// The setting is read on every batch so the feature can be toggled at runtime.
type SettingGate struct {
	Settings settings.Source
	Key      string
}

// BeforeBatch implements Interceptor.
func (g SettingGate) BeforeBatch(ctx context.Context, _ Batch) bool {
	return g.Settings.GetIntSetting(ctx, g.Key, 1) != 0
}

// AfterBatch implements Interceptor.
func (SettingGate) AfterBatch(context.Context, Batch) error { return nil }
