// Command scheduler runs the cluster-facing half of the platform: the pod
// lifecycle adapter's HTTP server (C5) and the pod/event reconciler (C6),
// sharing one endpoint cache (C7) between them.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
	"github.com/cypher-asi/aura-swarm-sub000/internal/scheduler"
)

// podMetricsGetter is the scheduler.Adapter's metrics dependency —
// satisfied directly by the metrics-server typed client's
// PodMetricsInterface, or left nil when that API isn't installed.
type podMetricsGetter interface {
	Get(ctx context.Context, name string, opts metav1.GetOptions) (*metricsv1beta1.PodMetrics, error)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// kubeConfig tries in-cluster config first and falls back to $KUBECONFIG (or
// ~/.kube/config) for local development, the same order the teacher's own
// k8s client wrapper uses.
func kubeConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

func main() {
	logger.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("DEV_MODE", "") == "true")
	log := logger.Scheduler()

	cfg := scheduler.DefaultConfig().WithNamespace(getEnv("AGENT_NAMESPACE", "swarm-agents"))
	cfg.ControlPlaneURL = getEnv("CONTROL_URL", cfg.ControlPlaneURL)

	restCfg, err := kubeConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build kubernetes config")
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build kubernetes clientset")
	}
	metricsClient, err := metricsclientset.NewForConfig(restCfg)
	if err != nil {
		log.Warn().Err(err).Msg("metrics-server client unavailable, resource usage queries will report not-ok")
		metricsClient = nil
	}

	pods := clientset.CoreV1().Pods(cfg.Namespace)
	events := clientset.CoreV1().Events(cfg.Namespace)

	var metrics podMetricsGetter
	if metricsClient != nil {
		metrics = metricsClient.MetricsV1beta1().PodMetricses(cfg.Namespace)
	}

	adapter := scheduler.NewClusterAdapter(pods, metrics, cfg)

	serviceTokens := auth.NewServiceTokenManager([]byte(getEnv("INTERNAL_TOKEN_SECRET", "")), "aura-swarm-scheduler", 5*time.Minute)
	notifier := scheduler.NewHTTPStatusNotifier(cfg.ControlPlaneURL, serviceTokens)

	reconciler := scheduler.NewReconciler(pods, events, adapter.Cache(), notifier)
	ctx, cancel := context.WithCancel(context.Background())
	go reconciler.Run(ctx)

	server := scheduler.NewServer(adapter)
	r := gin.New()
	server.Register(r)

	addr := getEnv("LISTEN_ADDR", "0.0.0.0:8082")
	httpSrv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info().Str("addr", addr).Msg("scheduler listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("scheduler server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down scheduler")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown did not complete cleanly")
	}
}
