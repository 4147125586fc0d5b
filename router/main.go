package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/handlers"
	analytics_handlers "github.com/sahilchouksey/learnhub-api/handlers/analytics"
	chapter_handlers "github.com/sahilchouksey/learnhub-api/handlers/chapter"
	course_handlers "github.com/sahilchouksey/learnhub-api/handlers/course"
	groupchat_handlers "github.com/sahilchouksey/learnhub-api/handlers/groupchat"
	lesson_handlers "github.com/sahilchouksey/learnhub-api/handlers/lesson"
	liveclass_handlers "github.com/sahilchouksey/learnhub-api/handlers/liveclass"
	notification_handlers "github.com/sahilchouksey/learnhub-api/handlers/notification"
	order_handlers "github.com/sahilchouksey/learnhub-api/handlers/order"
	subscription_handlers "github.com/sahilchouksey/learnhub-api/handlers/subscription"
	ticket_handlers "github.com/sahilchouksey/learnhub-api/handlers/ticket"
	user_handlers "github.com/sahilchouksey/learnhub-api/handlers/user"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/cache"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "learnhub-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: jwtSecret,
		Expiry: 24 * time.Hour,
		Issuer: jwtIssuer,
	})

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis is optional; caching degrades to direct queries without it
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Caching will be disabled.", err)
		redisCache = nil
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Services
	emailService := services.NewEmailService()
	notificationService := services.NewNotificationService(db, emailService, redisCache)
	lifecycleService := services.NewLifecycleService(db)
	accessService := services.NewAccessService(db)
	enrollmentService := services.NewEnrollmentService(db, notificationService)
	groupChatService := services.NewGroupChatService(db, lifecycleService)
	ticketService := services.NewTicketService(db, notificationService)
	meetingService := services.NewMeetingService(os.Getenv("MEETING_API_URL"), os.Getenv("MEETING_API_TOKEN"))
	aigenService := services.NewAIGenService(os.Getenv("AIGEN_API_URL"), os.Getenv("AIGEN_API_KEY"))
	analyticsService := services.NewAnalyticsService(db, redisCache)

	// Handlers
	courseHandler := course_handlers.NewCourseHandler(db, lifecycleService, enrollmentService)
	chapterHandler := chapter_handlers.NewChapterHandler(db, lifecycleService)
	lessonHandler := lesson_handlers.NewLessonHandler(db, lifecycleService, accessService, enrollmentService, aigenService)
	liveClassHandler := liveclass_handlers.NewLiveClassHandler(db, meetingService, notificationService)
	subscriptionHandler := subscription_handlers.NewSubscriptionHandler(db)
	orderHandler := order_handlers.NewOrderHandler(db, enrollmentService)
	groupChatHandler := groupchat_handlers.NewGroupChatHandler(db, groupChatService)
	ticketHandler := ticket_handlers.NewTicketHandler(db, ticketService)
	notificationHandler := notification_handlers.NewNotificationHandler(notificationService)
	analyticsHandler := analytics_handlers.NewAnalyticsHandler(db, analyticsService)
	userHandler := user_handlers.NewUserHandler(db)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	staffOnly := authMiddleware.RequireRoles(model.RoleAdmin, model.RoleInstructor)
	agentOnly := authMiddleware.RequireRoles(model.RoleAdmin, model.RoleCustomerCare)

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Courses
	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.ListCourses)
	courses.Get("/:slug", authMiddleware.Optional(), courseHandler.GetCourse)
	courses.Post("/", staffOnly, courseHandler.CreateCourse)
	courses.Put("/:slug", staffOnly, courseHandler.UpdateCourse)
	courses.Delete("/:slug", staffOnly, courseHandler.DeleteCourse)
	courses.Post("/:slug/enroll", authMiddleware.Required(), courseHandler.Enroll)
	courses.Post("/:slug/purchase", authMiddleware.Required(), courseHandler.Purchase)
	courses.Post("/:slug/rate", authMiddleware.Required(), courseHandler.Rate)

	// Chapters (nested under courses for listing/creation)
	chapters := api.Group("/courses/:courseID/chapters")
	chapters.Get("/", chapterHandler.ListChapters)
	chapters.Post("/", staffOnly, chapterHandler.CreateChapter)
	chapters.Put("/reorder", staffOnly, chapterHandler.Reorder)
	api.Put("/chapters/:id", staffOnly, chapterHandler.UpdateChapter)
	api.Delete("/chapters/:id", staffOnly, chapterHandler.DeleteChapter)

	// Lessons
	lessons := api.Group("/chapters/:chapterID/lessons")
	lessons.Get("/", lessonHandler.ListLessons)
	lessons.Post("/", staffOnly, lessonHandler.CreateLesson)
	lessons.Post("/ai", staffOnly, lessonHandler.GenerateLesson)
	api.Get("/lessons/:id", authMiddleware.Optional(), lessonHandler.GetLesson)
	api.Put("/lessons/:id", staffOnly, lessonHandler.UpdateLesson)
	api.Delete("/lessons/:id", staffOnly, lessonHandler.DeleteLesson)
	api.Post("/lessons/:id/complete", authMiddleware.Required(), lessonHandler.CompleteLesson)

	// Live classes
	liveClasses := api.Group("/chapters/:chapterID/live-classes")
	liveClasses.Get("/", liveClassHandler.ListLiveClasses)
	liveClasses.Post("/", staffOnly, liveClassHandler.CreateLiveClass)
	api.Put("/live-classes/:id", staffOnly, liveClassHandler.UpdateLiveClass)
	api.Delete("/live-classes/:id", staffOnly, liveClassHandler.DeleteLiveClass)
	api.Post("/live-classes/:id/status", staffOnly, liveClassHandler.UpdateStatus)

	// Subscription plans
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/", authMiddleware.Optional(), subscriptionHandler.ListPlans)
	subscriptions.Post("/", authMiddleware.RequireAdmin(), subscriptionHandler.CreatePlan)
	subscriptions.Put("/:id", authMiddleware.RequireAdmin(), subscriptionHandler.UpdatePlan)
	subscriptions.Delete("/:id", authMiddleware.RequireAdmin(), subscriptionHandler.DeletePlan)
	subscriptions.Post("/:id/purchase", authMiddleware.Required(), subscriptionHandler.Purchase)

	// Orders
	orders := api.Group("/orders", authMiddleware.Required())
	orders.Get("/", orderHandler.ListOrders)
	orders.Post("/:id/complete", authMiddleware.RequireAdmin(), orderHandler.CompleteOrder)

	// Group chats
	groupChats := api.Group("/groupchats", authMiddleware.Required())
	groupChats.Post("/", staffOnly, groupChatHandler.CreateChat)
	groupChats.Post("/sync-memberships", authMiddleware.RequireAdmin(), groupChatHandler.SyncMemberships)
	groupChats.Get("/:id/messages", groupChatHandler.ListMessages)
	groupChats.Post("/:id/messages", groupChatHandler.PostMessage)
	groupChats.Post("/:id/leave", groupChatHandler.Leave)

	// Support tickets
	tickets := api.Group("/support-tickets", authMiddleware.Required())
	tickets.Get("/", ticketHandler.ListTickets)
	tickets.Post("/", ticketHandler.CreateTicket)
	tickets.Get("/:id/details", ticketHandler.GetTicketDetails)
	tickets.Post("/:id/responses", ticketHandler.AddResponse)
	tickets.Post("/:id/agent-response", agentOnly, ticketHandler.AddAgentResponse)
	tickets.Put("/:id", agentOnly, ticketHandler.UpdateTicket)

	// Notifications
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.ListNotifications)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Put("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Put("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)

	// Admin analytics
	analysis := api.Group("/analysis", authMiddleware.RequireAdmin())
	analysis.Get("/dashboard", analyticsHandler.Dashboard)
	analysis.Get("/courses/:slug", analyticsHandler.CourseStats)
	analysis.Get("/enrollments/timeseries", analyticsHandler.EnrollmentTimeSeries)
	analysis.Get("/tickets", analyticsHandler.TicketBreakdown)
	analysis.Get("/top-courses", analyticsHandler.TopCourses)

	// Users
	api.Get("/users/me", authMiddleware.Required(), userHandler.Me)
	users := api.Group("/users", authMiddleware.RequireAdmin())
	users.Get("/", userHandler.ListUsers)
	users.Post("/", userHandler.CreateUser)
	users.Put("/:id/role", userHandler.UpdateRole)
}
