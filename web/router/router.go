package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"detectconsole/logger"
	"detectconsole/web/controller"
)

func InitRouter(controller *controller.Controller, logger *logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(logger.LogRequest)

	apirouter := router.PathPrefix("/api").Subrouter()
	apirouter.HandleFunc("/status", controller.DeviceStatus).Methods(http.MethodGet)
	apirouter.HandleFunc("/board", controller.Board).Methods(http.MethodGet)
	apirouter.HandleFunc("/detect", controller.Detect).Methods(http.MethodPost)

	router.HandleFunc("/results/{name}", controller.Results).Methods(http.MethodGet)

	filerouter := router.PathPrefix("/file").Subrouter()
	filerouter.HandleFunc("/upload", controller.UploadFile).Methods(http.MethodPost)
	filerouter.HandleFunc("/upload-list", controller.ListFiles).Methods(http.MethodGet)
	filerouter.HandleFunc("/upload-all", controller.UploadAllFiles).Methods(http.MethodPost)

	camerarouter := router.PathPrefix("/camera").Subrouter()
	camerarouter.HandleFunc("/start", controller.StartStream).Methods(http.MethodPost)
	camerarouter.HandleFunc("/stop", controller.StopStream).Methods(http.MethodPost)
	camerarouter.HandleFunc("/start-recording", controller.StartRecording).Methods(http.MethodPost)
	camerarouter.HandleFunc("/stop-recording", controller.StopRecording).Methods(http.MethodPost)
	camerarouter.HandleFunc("/stream.mjpeg", controller.ShowStream).Methods(http.MethodGet)

	return router
}
