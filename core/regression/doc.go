// Package regression provides the kernel regressors used by the position
// forecaster. Models are fitted on gonum matrices and queried one sample at a
// time. MultiOutput fits one independent regressor per target column, all
// created from the same factory so they share kernel and hyperparameters.
package regression
