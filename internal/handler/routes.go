package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unitutor-api/internal/middleware"
	"github.com/noah-isme/unitutor-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Rooms         *RoomHandler
	Meetings      *MeetingHandler
	Consultations *ConsultationHandler
	Faculty       *FacultyHandler
	Calendar      *CalendarHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts the API on group. auth verifies bearer tokens; downloadAudit
// wraps the token-authenticated export download and may be nil.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, auth gin.HandlerFunc, downloadAudit gin.HandlerFunc) {
	download := []gin.HandlerFunc{h.Calendar.Download}
	if downloadAudit != nil {
		download = append([]gin.HandlerFunc{downloadAudit}, download...)
	}
	group.GET("/calendar/exports/download", download...)

	secured := group.Group("", auth)

	rooms := secured.Group("/rooms")
	rooms.GET("", h.Rooms.List)
	rooms.GET("/available", h.Rooms.Available)
	rooms.GET("/:id", h.Rooms.Get)
	rooms.GET("/:id/schedule", h.Rooms.Schedule)

	admin := secured.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/rooms", h.Rooms.List)
	admin.POST("/rooms", h.Rooms.Create)
	admin.PUT("/rooms/:id", h.Rooms.Update)
	admin.PATCH("/rooms/:id", h.Rooms.Update)
	admin.DELETE("/rooms/:id", h.Rooms.Delete)
	admin.GET("/metrics", h.Metrics.Snapshot)

	meetings := secured.Group("/meetings")
	meetings.GET("", h.Meetings.List)
	meetings.POST("", h.Meetings.Create)
	meetings.GET("/conflicts", h.Meetings.Conflicts)
	meetings.GET("/:id", h.Meetings.Get)
	meetings.PUT("/:id", h.Meetings.Update)
	meetings.PATCH("/:id/status", h.Meetings.UpdateStatus)
	meetings.POST("/:id/participants", h.Meetings.AddParticipants)
	meetings.DELETE("/:id/participants/:userId", h.Meetings.RemoveParticipant)
	meetings.POST("/:id/rsvp", h.Meetings.Respond)

	consultations := secured.Group("/consultations")
	consultations.GET("", h.Consultations.List)
	consultations.POST("", middleware.RequireRoles(models.RoleStudent), h.Consultations.Book)
	consultations.GET("/availability", h.Consultations.Availability)
	consultations.GET("/:id", h.Consultations.Get)
	consultations.PATCH("/:id/status", h.Consultations.UpdateStatus)

	faculty := secured.Group("/faculty")
	faculty.GET("", h.Faculty.List)
	faculty.GET("/:id/availability", h.Faculty.GetAvailability)
	faculty.PUT("/:id/availability", middleware.RBAC(string(models.RoleAdmin), middleware.Self), h.Faculty.UpdateAvailability)

	calendar := secured.Group("/calendar", middleware.WithResponseMeta())
	calendar.GET("", h.Calendar.View)
	calendar.POST("/exports", h.Calendar.RequestExport)
	calendar.GET("/exports/:id", h.Calendar.ExportStatus)
}
