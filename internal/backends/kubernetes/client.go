package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientset "k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var scheme = sync.OnceValue(func() *runtime.Scheme {
	s := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(s))
	return s
})

// Scheme returns the scheme with the standard Kubernetes types.
func Scheme() *runtime.Scheme {
	return scheme()
}

// Client bundles the controller-runtime client used for objects with the
// typed clientset used for pod logs.
type Client struct {
	client.Client
	Clientset clientset.Interface
}

// NewClient connects to the cluster of kubeconfig, or of the default
// loading rules when kubeconfig is empty.
func NewClient(kubeconfig string) (*Client, error) {
	var (
		restConfig *rest.Config
		err        error
	)
	if kubeconfig != "" {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		restConfig, err = ctrl.GetConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load Kubernetes configuration: %w", err)
	}

	k8sClient, err := client.New(restConfig, client.Options{Scheme: Scheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	cs, err := clientset.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}
	return &Client{Client: k8sClient, Clientset: cs}, nil
}

// NewClientFrom wraps existing clients.
func NewClientFrom(c client.Client, cs clientset.Interface) *Client {
	return &Client{Client: c, Clientset: cs}
}

// Apply creates every object in namespace, updating those that already
// exist.
func (c *Client) Apply(ctx context.Context, namespace string, objs ...*unstructured.Unstructured) error {
	for _, obj := range objs {
		if namespace != "" {
			obj.SetNamespace(namespace)
		}
		err := c.Create(ctx, obj)
		if err == nil {
			continue
		}
		if !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}

		err = retry.RetryOnConflict(retry.DefaultRetry, func() error {
			existing := &unstructured.Unstructured{}
			existing.SetGroupVersionKind(obj.GroupVersionKind())
			if err := c.Get(ctx, client.ObjectKeyFromObject(obj), existing); err != nil {
				return err
			}
			obj.SetResourceVersion(existing.GetResourceVersion())
			return c.Update(ctx, obj)
		})
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}
	}
	return nil
}

// Scale sets the replicas of a deployment, retrying on conflicts.
func (c *Client) Scale(ctx context.Context, namespace, name string, replicas int32) error {
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		dep := &appsv1.Deployment{}
		if err := c.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, dep); err != nil {
			return err
		}
		dep.Spec.Replicas = &replicas
		return c.Update(ctx, dep)
	})
}

// Deployment returns the deployment name in namespace.
func (c *Client) Deployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	dep := &appsv1.Deployment{}
	if err := c.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// Pods lists the pods matching selector, sorted by name.
func (c *Client) Pods(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	list, err := c.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods %s: %w", selector, err)
	}
	pods := list.Items
	sort.Slice(pods, func(i, j int) bool { return pods[i].Name < pods[j].Name })
	return pods, nil
}

// DeletePods deletes every pod matching selector. Pods already gone are
// ignored.
func (c *Client) DeletePods(ctx context.Context, namespace, selector string) error {
	pods, err := c.Pods(ctx, namespace, selector)
	if err != nil {
		return err
	}
	for _, pod := range pods {
		err := c.Clientset.CoreV1().Pods(namespace).Delete(ctx, pod.Name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete pod %s: %w", pod.Name, err)
		}
	}
	return nil
}

// PodLogs returns the log lines of every pod matching selector, pod by pod.
func (c *Client) PodLogs(ctx context.Context, namespace, selector string) ([]string, error) {
	pods, err := c.Pods(ctx, namespace, selector)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, pod := range pods {
		raw, err := c.Clientset.CoreV1().Pods(namespace).GetLogs(pod.Name, &corev1.PodLogOptions{}).DoRaw(ctx)
		if err != nil {
			// containers still being created have no logs yet
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

// failingReasons are container waiting reasons that will not resolve on
// their own.
var failingReasons = map[string]bool{
	"CrashLoopBackOff":           true,
	"ErrImagePull":               true,
	"ImagePullBackOff":           true,
	"InvalidImageName":           true,
	"CreateContainerConfigError": true,
}

// PodProblem returns the first pod whose container is stuck in a failing
// state, with the reason.
func PodProblem(pods []corev1.Pod) (pod string, reason string, found bool) {
	for _, p := range pods {
		for _, cs := range p.Status.ContainerStatuses {
			if w := cs.State.Waiting; w != nil && failingReasons[w.Reason] {
				return p.Name, fmt.Sprintf("%s: %s", w.Reason, w.Message), true
			}
		}
	}
	return "", "", false
}
