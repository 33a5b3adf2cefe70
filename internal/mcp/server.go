// Package mcp exposes the profile and insight operations of one
// authenticated user as Model Context Protocol tools over stdio.
package mcp

import (
	"context"

	"sleepwise/internal/auth"
	"sleepwise/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Server 以固定身份调用 service 层
type Server struct {
	mcpServer *mcp.Server
	identity  *auth.Identity
	profiles  service.ProfileService
	insights  service.InsightService
	logger    *zap.Logger
}

// NewServer identity 在启动时由 token 换取
func NewServer(identity *auth.Identity, profiles service.ProfileService, insights service.InsightService, version string, logger *zap.Logger) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: "sleepwise", Version: version}, nil),
		identity:  identity,
		profiles:  profiles,
		insights:  insights,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// Serve 使用 stdio transport，阻塞到 ctx 取消或客户端断开
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting MCP server", zap.String("uid", s.identity.ID))
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
