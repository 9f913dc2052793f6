package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name DocumentFetcher --dir ../usecase --output usecase --outpkg usecasemock --filename document_fetcher_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name CommandSink --dir ../usecase --output usecase --outpkg usecasemock --filename command_sink_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name BoardPublisher --dir ../usecase --output usecase --outpkg usecasemock --filename board_publisher_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name BoardRenderer --dir ../usecase --output usecase --outpkg usecasemock --filename board_renderer_mock.go
