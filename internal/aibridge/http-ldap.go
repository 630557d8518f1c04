// Пакет aibridge предоставляет HTTP-обработчики операций моста каталогов: запуск
// синхронизации, аутентификация через каталог и административное управление
// закешированными пользователями.
//
// Основные возможности:
//   - Ручной запуск синхронизации одного арендатора или всех включенных.
//   - Аутентификация по учётным данным каталога с выдачей принципала.
//   - Список пользователей каталога и переключение их статуса.
//   - Статистика синхронизации и проверка подключения к каталогу.
package aibridge

import (
	"errors"
	"net/http"

	authprovider "github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/auth-provider"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/apierrors"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dao"
	"github.com/aisa-it/aibridge/aibridge.go/internal/aibridge/dto"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type AuthenticateRequest struct {
	Identity   string `json:"identity"`
	Credential string `json:"credential"`
}

type UserStatusRequest struct {
	Enabled bool `json:"enabled"`
}

type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Services) AddLdapServices(g *echo.Group) {
	g.POST("/sync", s.syncAllTenants)
	g.POST("/:tenantId/sync", s.syncTenant)
	g.POST("/:tenantId/authenticate", s.authenticate)
	g.GET("/:tenantId/users", s.getLdapUserList)
	g.PATCH("/:tenantId/users/:userId", s.updateLdapUserStatus)
	g.GET("/:tenantId/stats", s.getLdapSyncStats)
	g.POST("/:tenantId/test-connection", s.testLdapConnection)
}

// syncTenant godoc
// @Summary LDAP: ручной запуск синхронизации арендатора
// @Tags LDAP
// @Success 200 {object} maintenance.SyncResult
// @Router /api/ldap/{tenantId}/sync [post]
func (s *Services) syncTenant(c echo.Context) error {
	tenantId := c.Param("tenantId")

	result := s.synchronizer.SyncTenant(c.Request().Context(), tenantId)
	if result.Skipped {
		return EErrorDefined(c, apierrors.ErrSyncInProgress)
	}
	if result.Err != nil {
		if errors.Is(result.Err, dao.ErrConfigInvalid) {
			return EErrorDefined(c, apierrors.ErrLdapConfigInvalid.WithFormattedMessage(result.ErrorText))
		}
		return EErrorDefined(c, apierrors.ErrSyncFailed.WithFormattedMessage(result.ErrorText))
	}
	return c.JSON(http.StatusOK, result)
}

// syncAllTenants godoc
// @Summary LDAP: запуск синхронизации всех включенных арендаторов
// @Tags LDAP
// @Success 200 {array} maintenance.SyncResult
// @Router /api/ldap/sync [post]
func (s *Services) syncAllTenants(c echo.Context) error {
	return c.JSON(http.StatusOK, s.synchronizer.SyncAllEnabled(c.Request().Context()))
}

// authenticate godoc
// @Summary LDAP: аутентификация пользователя через каталог арендатора
// @Tags LDAP
// @Success 200 {object} dto.Principal
// @Router /api/ldap/{tenantId}/authenticate [post]
func (s *Services) authenticate(c echo.Context) error {
	tenantId := c.Param("tenantId")

	var req AuthenticateRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if req.Identity == "" || req.Credential == "" {
		return EErrorDefined(c, apierrors.ErrLoginCredentialsRequired)
	}

	principal, err := s.authProvider.Authenticate(c.Request().Context(), tenantId, req.Identity, req.Credential)
	if err != nil {
		if errors.Is(err, authprovider.ErrDirectoryUnavailable) {
			return EErrorDefined(c, apierrors.ErrDirectoryAuthUnavailable)
		}
		return EError(c, err)
	}
	if principal == nil {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}
	return c.JSON(http.StatusOK, principal)
}

// getLdapUserList godoc
// @Summary LDAP: список пользователей каталога арендатора
// @Tags LDAP
// @Param enabled query bool false "только включенные"
// @Success 200 {array} dto.LdapUserLight
// @Router /api/ldap/{tenantId}/users [get]
func (s *Services) getLdapUserList(c echo.Context) error {
	tenantId := c.Param("tenantId")
	enabledOnly := c.QueryParam("enabled") == "true"

	users, err := dao.GetLdapUsers(s.db, tenantId, enabledOnly)
	if err != nil {
		return EError(c, err)
	}

	res := make([]dto.LdapUserLight, len(users))
	for i := range users {
		res[i] = *users[i].ToLightDTO()
	}
	return c.JSON(http.StatusOK, res)
}

// updateLdapUserStatus godoc
// @Summary LDAP: включение/отключение пользователя каталога
// @Tags LDAP
// @Success 200 {object} dto.LdapUserLight
// @Router /api/ldap/{tenantId}/users/{userId} [patch]
func (s *Services) updateLdapUserStatus(c echo.Context) error {
	tenantId := c.Param("tenantId")
	userId := c.Param("userId")

	var req UserStatusRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	user, err := dao.SetLdapUserStatus(s.db, tenantId, userId, req.Enabled)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrLdapUserNotFound)
		}
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, user.ToLightDTO())
}

// getLdapSyncStats godoc
// @Summary LDAP: статистика синхронизации арендатора
// @Tags LDAP
// @Success 200 {object} dto.LdapSyncStats
// @Router /api/ldap/{tenantId}/stats [get]
func (s *Services) getLdapSyncStats(c echo.Context) error {
	tenantId := c.Param("tenantId")

	config, err := dao.GetLdapConfigAny(s.db, tenantId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrLdapConfigNotFound)
		}
		return EError(c, err)
	}

	stats, err := dao.GetLdapSyncStats(s.db, config)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// testLdapConnection godoc
// @Summary LDAP: проверка подключения к каталогу арендатора
// @Tags LDAP
// @Success 200 {object} TestConnectionResponse
// @Router /api/ldap/{tenantId}/test-connection [post]
func (s *Services) testLdapConnection(c echo.Context) error {
	tenantId := c.Param("tenantId")

	config, err := dao.GetLdapConfigAny(s.db, tenantId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrLdapConfigNotFound)
		}
		return EError(c, err)
	}

	ok, message := s.synchronizer.TestConnection(config)
	return c.JSON(http.StatusOK, TestConnectionResponse{Success: ok, Message: message})
}
