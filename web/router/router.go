package router

import (
	"net/http"

	"camrelay/logger"
	"camrelay/metrics"
	"camrelay/web/controller"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func InitRouter(controller *controller.Controller, logger *logger.Logger, m *metrics.Metrics, corsOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.Use(logger.LogRequest)

	router.HandleFunc("/", controller.Index).Methods(http.MethodGet)
	router.HandleFunc("/status", controller.Status).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/video_feed/{id}", controller.ShowStream).Methods(http.MethodGet)

	camerarouter := router.PathPrefix("/camera").Subrouter()
	camerarouter.HandleFunc("/register/{id}", controller.RegisterCamera).Methods(http.MethodPost)
	camerarouter.HandleFunc("/trigger_alarm/{id}", controller.TriggerAlarm).Methods(http.MethodPost)
	camerarouter.HandleFunc("/clear_alarm/{id}", controller.ClearAlarm).Methods(http.MethodPost)
	camerarouter.HandleFunc("/heartbeat/{id}", controller.Heartbeat).Methods(http.MethodPost)
	camerarouter.HandleFunc("/frame/{id}", controller.PushFrame).Methods(http.MethodPost)

	apirouter := router.PathPrefix("/api").Subrouter()
	apirouter.HandleFunc("/commands", controller.PollCommand).Methods(http.MethodGet)
	apirouter.HandleFunc("/alarm_status", controller.AlarmStatus).Methods(http.MethodGet)
	apirouter.HandleFunc("/camera_streams", controller.CameraStreams).Methods(http.MethodGet)
	apirouter.HandleFunc("/clear_all_alarms", controller.ClearAllAlarms).Methods(http.MethodPost)
	apirouter.HandleFunc("/trigger_alarm_{id}", controller.TriggerAlarm).Methods(http.MethodPost)
	apirouter.HandleFunc("/clear_alarm_{id}", controller.ClearAlarm).Methods(http.MethodPost)
	apirouter.HandleFunc("/snapshot/{id}", controller.Snapshot).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	return cors(router)
}
