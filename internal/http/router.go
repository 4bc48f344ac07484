package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/auth"
)

// NewRouter creates and configures the device-facing router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(ErrorHandler())

	authz := cfg.Authorizer
	read := authz.RequireCapability(auth.Read)
	create := authz.RequireCapability(auth.Create)
	update := authz.RequireCapability(auth.Update)
	remove := authz.RequireCapability(auth.Delete)

	health := NewHealthController(cfg.Database, cfg.Version, cfg.HealthProbes...)
	router.GET("/health", health.Status)

	// Device authentication
	devicesController := NewDevicesController(cfg.Devices)
	oauth := NewOAuthController(cfg.Devices, cfg.PublicHost, cfg.TokenDuration)
	authRoutes := router.Group("")
	if cfg.RateLimiter != nil {
		authRoutes.Use(cfg.RateLimiter.Middleware())
	}
	authRoutes.POST("/v1/auth/device", devicesController.Authenticate)
	authRoutes.POST("/v1/auth/refresh", devicesController.Refresh)
	authRoutes.GET("/oauth/:device_id/.well-known/openid-configuration", oauth.Configuration)
	authRoutes.POST("/oauth/connect/token", oauth.Token)

	// Link administration
	router.GET("/devices/unlinked", devicesController.ListUnlinked)
	router.GET("/devices/linked", devicesController.ListLinked)
	router.POST("/devices/linked", devicesController.Link)
	router.DELETE("/devices/linked/:device_id", devicesController.Unlink)
	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Devices, cfg.Audit)
		router.GET("/devices/linked/:device_id/audit", auditController.GetAuditEvents)
	}

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks, cfg.TaskDefaults)
		router.GET("/tasks/types", tasksController.ListTaskTypes)
		router.GET("/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/tasks/:type/run", tasksController.RunTask)
	}

	initialization := NewInitializationController(cfg.PublicHost)
	router.GET("/v1/initialization", authz.RequireLink(), initialization.Initialization)
	router.POST("/v1/analytics/gettests", initialization.GetTests)

	// Library
	libraryController := NewLibraryController(cfg.Sync, cfg.Library, cfg.PublicHost)
	router.GET("/v1/library/sync", read, libraryController.Sync)
	router.GET("/v1/library/:id/metadata", read, libraryController.Metadata)
	router.DELETE("/v1/library/:id", remove, libraryController.Delete)

	// Reading state and ratings
	stateController := NewStateController(cfg.States)
	router.GET("/v1/library/:id/state", read, stateController.GetState)
	router.PUT("/v1/library/:id/state", update, stateController.PutState)
	router.GET("/v1/user/reviews", read, stateController.Ratings)
	router.POST("/v1/products/:id/rating/:rating", update, stateController.Rate)
	router.GET("/v1/products/:id/reviews", read, stateController.Reviews)
	router.POST("/v1/analytics/event", update, stateController.AnalyticsEvent)

	// Annotations
	annotationsController := NewAnnotationsController(cfg.Annotations)
	router.GET("/api/v3/content/:id/annotations", read, annotationsController.List)
	router.PATCH("/api/v3/content/:id/annotations", update, annotationsController.Patch)
	router.POST("/api/v3/content/checkforchanges", annotationsController.CheckForChanges)

	// Shelves
	tagsController := NewTagsController(cfg.Shelves)
	router.POST("/v1/library/tags", create, tagsController.CreateTag)
	router.PUT("/v1/library/tags/:id", update, tagsController.RenameTag)
	router.DELETE("/v1/library/tags/:id", remove, tagsController.DeleteTag)
	router.POST("/v1/library/tags/:id/items", create, tagsController.AddItems)
	router.POST("/v1/library/tags/:id/items/delete", remove, tagsController.RemoveItems)

	// Token-authorized downloads
	booksController := NewBooksController(cfg.Tokens, cfg.Devices, cfg.Books)
	router.GET("/books/:id", booksController.Download)
	if cfg.Covers != nil {
		coversController := NewCoversController(cfg.Tokens, cfg.Devices, cfg.Covers)
		router.GET("/images/:id", coversController.GetCover)
		router.GET("/images/:id/:width/:height/:greyscale/image.jpg", coversController.GetSizedCover)
	}

	if cfg.ProxyEnabled {
		proxy, err := NewStoreProxy(cfg.ProxyStoreURL, cfg.ProxyImageURL)
		if err != nil {
			log.Printf("Store proxy disabled: %v", err)
		} else {
			router.NoRoute(proxy.Handle)
			return router
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{ErrorCode: "NOT_FOUND", Message: "The requested resource does not exist."})
	})

	return router
}
