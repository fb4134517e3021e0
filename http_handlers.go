package main

// this file contains implementation of HTTP handlers - REST API

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
)

var (
	jwtSecret   []byte
	apiPassword string
	service     Service
)

func NewHTTPRouter(cfg *Config, _service Service) *echo.Echo {
	service = _service
	jwtSecret = cfg.Auth.Secret()
	apiPassword = cfg.Auth.Password()

	r := echo.New()
	r.HideBanner = true
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
	}))

	router := r.Group("/api")
	router.GET("/health", healthCheckHandler)
	router.POST("/login", loginHandler)

	radioGroup := router.Group("/radio")
	radioGroup.Use(middleware.JWT(jwtSecret))
	{
		radioGroup.GET("/status", radioStatusHandler)
		radioGroup.POST("/start", radioStartHandler)
		radioGroup.POST("/stop", radioStopHandler)
		radioGroup.GET("/history", radioHistoryHandler)
	}

	alarmGroup := router.Group("/alarm")
	alarmGroup.Use(middleware.JWT(jwtSecret))
	{
		alarmGroup.GET("/status", alarmStatusHandler)
		alarmGroup.POST("/on", alarmOnHandler)
		alarmGroup.POST("/off", alarmOffHandler)
		alarmGroup.POST("/time", alarmTimeHandler)
		alarmGroup.POST("/station", alarmStationHandler)
	}

	stationGroup := router.Group("/stations")
	stationGroup.Use(middleware.JWT(jwtSecret))
	stationGroup.GET("", stationsHandler)

	return r
}

func healthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "I am up and running!")
}

// loginHandler trades the API password for a signed token. With no
// password configured any login succeeds, which is acceptable on a
// closed network and the default the appliance ships with.
func loginHandler(c echo.Context) error {
	if apiPassword != "" && c.FormValue("password") != apiPassword {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"message": "wrong password",
		})
	}

	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["exp"] = time.Now().Add(time.Hour * 72).Unix()
	t, err := token.SignedString(jwtSecret)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": t,
	})
}

func radioStartHandler(c echo.Context) error {
	stationID := c.FormValue("station")

	session, err := service.StartRadio(stationID, SourceAPI)
	if errors.Is(err, ErrAlreadyPlaying) {
		return c.JSON(http.StatusOK, echo.Map{
			"status": "already started",
		})
	}
	if errors.Is(err, ErrUnknownStation) {
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": err.Error(),
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok let's start this",
		"session": session,
	})
}

func radioStopHandler(c echo.Context) error {
	err := service.StopRadio()
	if errors.Is(err, ErrNotPlaying) {
		return c.JSON(http.StatusOK, echo.Map{
			"status": "already stopped",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok let's stop this",
	})
}

func radioStatusHandler(c echo.Context) error {
	status := service.RadioStatus()

	state := "stopped"
	if status.Playing {
		state = "started"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":      state,
		"playing":     status.Playing,
		"requested":   status.Requested,
		"station":     status.Station,
		"elapsed_sec": status.ElapsedSec,
	})
}

func radioHistoryHandler(c echo.Context) error {
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	sessions, err := service.History(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sessions": sessions,
	})
}

func alarmOnHandler(c echo.Context) error {
	alarm, changed, err := service.SetAlarmEnabled(true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	status := "ok, set alarm on"
	if !changed {
		status = "alarm already on"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": status,
		"alarm":  alarm,
	})
}

func alarmOffHandler(c echo.Context) error {
	alarm, changed, err := service.SetAlarmEnabled(false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	status := "ok, set alarm off"
	if !changed {
		status = "alarm already off"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": status,
		"alarm":  alarm,
	})
}

func alarmStatusHandler(c echo.Context) error {
	status, err := service.AlarmStatus()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	state := "off"
	if status.Enabled {
		state = fmt.Sprintf("on at %02d:%02d", status.Hour, status.Minute)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       state,
		"alarm":        status.Alarm,
		"next_trigger": status.NextTrigger,
	})
}

func alarmTimeHandler(c echo.Context) error {
	form := struct {
		Hour   int `form:"hour"`
		Minute int `form:"min"`
	}{Hour: -1, Minute: -1}
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status": "time not valid",
		})
	}

	alarm, err := service.SetAlarmTime(form.Hour, form.Minute)
	if errors.Is(err, ErrInvalidTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status": "time not valid",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": fmt.Sprintf("time set to %02d:%02d", alarm.Hour, alarm.Minute),
		"alarm":  alarm,
	})
}

func alarmStationHandler(c echo.Context) error {
	form := struct {
		Station string `form:"station"`
	}{}
	if err := c.Bind(&form); err != nil || form.Station == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing station",
		})
	}

	alarm, err := service.SetAlarmStation(form.Station)
	if errors.Is(err, ErrUnknownStation) {
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": err.Error(),
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "station set to " + alarm.StationID,
		"alarm":  alarm,
	})
}

func stationsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"stations": service.Stations(),
	})
}
