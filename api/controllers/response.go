/*
 * @module api/controllers/response
 * @description 统一响应结构与构造函数
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 业务结果/错误 -> 统一响应
 * @rules status=0 表示成功，非0 与 HTTP 状态码一致
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
	}
}

// errorResponse 错误响应，err 不为空时附加到消息中
func errorResponse(status int, msg string, err error) *APIResponse {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &APIResponse{
		Status: status,
		Msg:    msg,
	}
}

// BadRequestResponse 请求参数错误响应
func BadRequestResponse(msg string, err error) *APIResponse {
	return errorResponse(http.StatusBadRequest, msg, err)
}

// InternalErrorResponse 服务内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	return errorResponse(http.StatusInternalServerError, msg, err)
}

// writeResponse 按响应状态设置 HTTP 状态码并输出
func writeResponse(w http.ResponseWriter, r *http.Request, resp *APIResponse) {
	if resp.Status != 0 {
		render.Status(r, resp.Status)
	}
	render.JSON(w, r, resp)
}
