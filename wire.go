//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"stactask/ioc"
	"stactask/pkg/server"
)

func InitApp(ctx context.Context) (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		ioc.InitConfig,
		ioc.InitLogger,
		ioc.InitFs,
		ioc.InitStorage,
		ioc.InitPrometheus,
		ioc.InitCollectors,
		ioc.InitLineagePublisher,
		ioc.InitLineageSinks,
		ioc.InitLineageReader,
		ioc.InitRegistry,
		ioc.InitRunner,
		ioc.InitAppService,
		ioc.InitTaskHandler,
		ioc.InitGinEngine,
		ioc.InitJanitor,
		ioc.InitScheduler,
		server.NewHTTPServer,
	))
}
